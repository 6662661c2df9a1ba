package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/internal/dataset"
	"github.com/jamesainslie/go-cutoff/internal/report"
	"github.com/jamesainslie/go-cutoff/internal/tracking"
)

func newFindCmd(a *app) *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the cutoff of one class",
		Long: `Find sweeps every distinct predicted score of one class and reports the
cutoff with the lowest weighted error penalty. Samples scoring at or above
the cutoff are positive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return a.runFind(cmd.Context(), cmd.OutOrStdout(), class, asJSON)
		},
	}

	addInputFlags(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&class, "class", "c", "", "Class to treat as positive (default: the only class)")
	flags.String("plot", "", "Write the penalty curve to this image file")
	flags.String("cutoffs", "", "Write the cutoff to this .npy file")
	return cmd
}

func (a *app) loadDataset() (*dataset.Dataset, error) {
	in := a.cfg.Input
	switch in.Format {
	case "npy":
		if in.Labels == "" || in.Predictions == "" {
			return nil, errors.New("npy input needs --labels and --predictions")
		}
		return dataset.LoadNpy(in.Labels, in.Predictions)
	default:
		if in.Path == "" {
			return nil, errors.New("csv input needs --input")
		}
		return dataset.LoadCSVFile(in.Path, in.LabelColumn)
	}
}

func (a *app) runFind(ctx context.Context, w io.Writer, class string, asJSON bool) error {
	d, err := a.loadDataset()
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if class == "" {
		if len(d.Classes) != 1 {
			return fmt.Errorf("--class is required with %d classes %v", len(d.Classes), d.Classes)
		}
		class = d.Classes[0]
	}

	actual, predicted, err := d.Binary(class)
	if err != nil {
		return err
	}
	opts, err := a.options()
	if err != nil {
		return err
	}

	samples, err := cutoff.Pair(actual, predicted)
	if err != nil {
		return err
	}
	sorted := cutoff.SortSamples(samples)
	res, err := cutoff.SweepSorted(sorted, opts...)
	if err != nil {
		return fmt.Errorf("class %s: %w", class, err)
	}
	a.logger.Info("cutoff found", "class", class, "threshold", res.Threshold, "penalty", res.Score, "samples", len(samples))

	cr, err := report.Evaluate(class, samples, res.Threshold, a.penaltyConfig())
	if err != nil {
		return err
	}
	r := a.newReport(len(samples), []report.ClassResult{cr})
	if err := a.writeReport(w, r, asJSON); err != nil {
		return err
	}

	if path := a.cfg.Output.Plot; path != "" {
		steps, err := cutoff.Trace(sorted, opts...)
		if err != nil {
			return err
		}
		if err := report.SavePenaltyCurve(path, "Penalty curve: "+class, steps, res.Threshold); err != nil {
			return fmt.Errorf("writing plot: %w", err)
		}
		a.logger.Info("plot written", "path", path)
	}
	if path := a.cfg.Output.Cutoffs; path != "" {
		if err := dataset.WriteVector(path, []float64{res.Threshold}); err != nil {
			return fmt.Errorf("writing cutoffs: %w", err)
		}
	}

	return a.track(ctx, r)
}

func (a *app) newReport(samples int, classes []report.ClassResult) report.Report {
	pc := a.penaltyConfig()
	r := report.Report{
		Method:   pc.Method,
		Weight:   pc.Weight,
		UseRates: pc.UseRates,
		Samples:  samples,
		Classes:  classes,
	}
	r.Sort()
	return r
}

func (a *app) writeReport(w io.Writer, r report.Report, asJSON bool) error {
	var data []byte
	if asJSON || a.cfg.Output.Report != "" {
		var err error
		data, err = r.MarshalJSON()
		if err != nil {
			return err
		}
	}
	if path := a.cfg.Output.Report; path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if asJSON {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	report.WriteTable(w, r)
	return nil
}

// track records the report as a new run when an experiment is configured.
func (a *app) track(ctx context.Context, r report.Report) error {
	if a.cfg.Tracking.Experiment == "" {
		return nil
	}
	store, err := tracking.Open(ctx, a.cfg.Tracking.Database, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	metrics := make(map[string]float64, 2*len(r.Classes))
	for _, c := range r.Classes {
		metrics["penalty."+c.Class] = c.Penalty
		metrics["f1."+c.Class] = c.Metrics.F1
	}
	run, err := store.SaveRun(ctx, tracking.RunSpec{
		Experiment: a.cfg.Tracking.Experiment,
		Params: map[string]string{
			"method":    r.Method.String(),
			"weight":    strconv.FormatFloat(r.Weight, 'g', -1, 64),
			"use_rates": strconv.FormatBool(r.UseRates),
		},
		Metrics: metrics,
		Cutoffs: r.Cutoffs(),
	})
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	a.logger.Info("run recorded", "id", run.ID, "experiment", run.Experiment)
	return nil
}
