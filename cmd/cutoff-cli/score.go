package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-cutoff/inference"
	"github.com/jamesainslie/go-cutoff/internal/dataset"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		modelPath    string
		featuresPath string
		outPath      string
		poolSize     int
		batchSize    int
		names        = inference.DefaultIONames()
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a feature matrix with an ONNX classifier",
		Long: `Score runs every row of a .npy feature matrix through an ONNX classifier
and writes the samples x classes probability matrix. With --labels the
per-class cutoffs of the new predictions are reported as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelPath == "" || featuresPath == "" {
				return errors.New("--model and --features are required")
			}
			if batchSize <= 0 {
				return fmt.Errorf("batch size must be positive, got %d", batchSize)
			}

			features, err := dataset.ReadMatrix(featuresPath)
			if err != nil {
				return fmt.Errorf("reading features: %w", err)
			}
			rows, cols := features.Dims()

			pool, err := inference.NewPool(modelPath, poolSize, names)
			if err != nil {
				return fmt.Errorf("creating pool: %w", err)
			}
			defer func() { _ = pool.Close() }() // Cleanup error ignored in CLI

			batch := make([][]float32, rows)
			for i := range batch {
				row := make([]float32, cols)
				for j := range row {
					row[j] = float32(features.At(i, j))
				}
				batch[i] = row
			}
			probs, err := predictBatches(cmd.Context(), pool, batch, batchSize)
			if err != nil {
				return err
			}
			a.logger.Info("scored", "rows", rows, "model", modelPath)

			if outPath != "" {
				if err := dataset.WriteMatrix(outPath, probs); err != nil {
					return fmt.Errorf("writing predictions: %w", err)
				}
			}

			labelsPath, _ := cmd.Flags().GetString("labels")
			if labelsPath == "" {
				return nil
			}
			if outPath == "" {
				return errors.New("--labels needs --out to reload the predictions")
			}
			d, err := dataset.LoadNpy(labelsPath, outPath)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return a.runMulticlass(cmd.Context(), cmd.OutOrStdout(), d, asJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&modelPath, "model", "m", "", "ONNX classifier model")
	flags.StringVarP(&featuresPath, "features", "f", "", ".npy feature matrix, one row per sample")
	flags.StringVarP(&outPath, "out", "o", "", "Write predicted probabilities to this .npy file")
	flags.IntVar(&poolSize, "pool-size", runtime.NumCPU(), "Concurrent ONNX sessions")
	flags.IntVar(&batchSize, "batch-size", 256, "Rows per inference call")
	flags.StringVar(&names.Input, "input-name", names.Input, "Model input tensor name")
	flags.StringVar(&names.Output, "output-name", names.Output, "Model probability output tensor name")
	flags.String("labels", "", ".npy file of actual labels; report cutoffs of the new predictions")
	flags.String("report", "", "Write the JSON report to this file")
	flags.Bool("json", false, "Print the JSON report instead of a table")
	return cmd
}

// predictBatches splits rows into batches, scores them concurrently across
// the pool and stacks the results in row order.
func predictBatches(ctx context.Context, pool *inference.Pool, rows [][]float32, size int) (*mat.Dense, error) {
	var batches [][][]float32
	for start := 0; start < len(rows); start += size {
		batches = append(batches, rows[start:min(start+size, len(rows))])
	}
	if len(batches) == 0 {
		return nil, errors.New("no feature rows")
	}

	parts := make([]*mat.Dense, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Size())
	for i, b := range batches {
		g.Go(func() error {
			probs, err := pool.Predict(ctx, b)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			parts[i] = probs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, classes := parts[0].Dims()
	out := mat.NewDense(len(rows), classes, nil)
	offset := 0
	for i, p := range parts {
		r, c := p.Dims()
		if c != classes {
			return nil, fmt.Errorf("batch %d returned %d classes, want %d", i, c, classes)
		}
		out.Slice(offset, offset+r, 0, c).(*mat.Dense).Copy(p)
		offset += r
	}
	return out, nil
}
