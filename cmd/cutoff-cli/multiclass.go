package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/internal/dataset"
	"github.com/jamesainslie/go-cutoff/internal/report"
)

func newMulticlassCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multiclass",
		Short: "Find one-vs-rest cutoffs for every class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDataset()
			if err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return a.runMulticlass(cmd.Context(), cmd.OutOrStdout(), d, asJSON)
		},
	}

	addInputFlags(cmd)
	cmd.Flags().String("cutoffs", "", "Write the cutoffs, in class column order, to this .npy file")
	return cmd
}

func (a *app) runMulticlass(ctx context.Context, w io.Writer, d *dataset.Dataset, asJSON bool) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	cutoffs, err := cutoff.FindMulticlassMatrix(d.Labels, d.Predictions, d.ClassIndex(), opts...)
	if err != nil {
		return err
	}
	a.logger.Info("cutoffs found", "classes", len(cutoffs), "samples", len(d.Labels))

	pc := a.penaltyConfig()
	results := make([]report.ClassResult, 0, len(d.Classes))
	for _, class := range d.Classes {
		actual, predicted, err := d.Binary(class)
		if err != nil {
			return err
		}
		samples, err := cutoff.Pair(actual, predicted)
		if err != nil {
			return err
		}
		cr, err := report.Evaluate(class, samples, cutoffs[class], pc)
		if err != nil {
			return err
		}
		results = append(results, cr)
	}

	r := a.newReport(len(d.Labels), results)
	if err := a.writeReport(w, r, asJSON); err != nil {
		return err
	}

	if path := a.cfg.Output.Cutoffs; path != "" {
		ordered := make([]float64, len(d.Classes))
		for i, class := range d.Classes {
			ordered[i] = cutoffs[class]
		}
		if err := dataset.WriteVector(path, ordered); err != nil {
			return fmt.Errorf("writing cutoffs: %w", err)
		}
	}

	return a.track(ctx, r)
}
