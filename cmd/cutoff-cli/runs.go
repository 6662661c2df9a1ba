package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-cutoff/internal/report"
	"github.com/jamesainslie/go-cutoff/internal/tracking"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage recorded model runs and their rollout",
	}
	cmd.AddCommand(
		newRunsSaveCmd(a),
		newRunsListCmd(a),
		newRunsStatusCmd(a),
		newRunsUpdateCmd(a),
		newRunsFractionsCmd(a),
	)
	return cmd
}

func (a *app) withStore(ctx context.Context, fn func(*tracking.Store) error) error {
	store, err := tracking.Open(ctx, a.cfg.Tracking.Database, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

// filterFlags binds the flags that select runs of one experiment version.
type filterFlags struct {
	version  string
	submodel string
	status   string
}

func (f *filterFlags) register(cmd *cobra.Command, withStatus bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.version, "model-version", "0", "Model version (major[.minor[.micro]])")
	flags.StringVar(&f.submodel, "submodel", "", "Restrict to one submodel")
	if withStatus {
		flags.StringVar(&f.status, "status", "", "Restrict to one status: new, active, canary or disabled")
	}
}

func (f *filterFlags) filter(experiment string) (tracking.Filter, error) {
	if experiment == "" {
		return tracking.Filter{}, tracking.ErrNoExperiment
	}
	v, err := tracking.ParseVersion(f.version)
	if err != nil {
		return tracking.Filter{}, err
	}
	filter := tracking.Filter{Experiment: experiment, Version: v, Submodel: f.submodel}
	if f.status != "" {
		s, err := tracking.ParseStatus(f.status)
		if err != nil {
			return tracking.Filter{}, err
		}
		filter = filter.WithStatus(s)
	}
	return filter, nil
}

func newRunsSaveCmd(a *app) *cobra.Command {
	var (
		versionStr string
		submodel   string
		artifact   string
		reportPath string
		params     map[string]string
		metrics    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Record a run, optionally taking its cutoffs from a JSON report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := tracking.ParseVersion(versionStr)
			if err != nil {
				return err
			}
			parsed, err := parseFloats(metrics)
			if err != nil {
				return err
			}
			spec := tracking.RunSpec{
				Experiment:  a.cfg.Tracking.Experiment,
				Submodel:    submodel,
				Version:     v,
				ArtifactURI: artifact,
				Params:      params,
				Metrics:     parsed,
			}
			if reportPath != "" {
				data, err := os.ReadFile(reportPath)
				if err != nil {
					return err
				}
				if spec.Cutoffs, err = report.DecodeCutoffs(data); err != nil {
					return err
				}
			}

			return a.withStore(cmd.Context(), func(s *tracking.Store) error {
				run, err := s.SaveRun(cmd.Context(), spec)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), run.ID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&versionStr, "model-version", "0", "Model version (major[.minor[.micro]])")
	flags.StringVar(&submodel, "submodel", "", "Submodel name (default: the experiment)")
	flags.StringVar(&artifact, "artifact", "", "Where the trained model is stored")
	flags.StringVar(&reportPath, "from-report", "", "JSON report whose cutoffs the run carries")
	flags.StringToStringVar(&params, "param", nil, "Immutable run parameter key=value (repeatable)")
	flags.StringToStringVar(&metrics, "metric", nil, "Numeric run metric key=value (repeatable)")
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs of an experiment version, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter(a.cfg.Tracking.Experiment)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *tracking.Store) error {
				runs, err := s.ListRuns(cmd.Context(), f)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSUBMODEL\tVERSION\tSTATUS\tFRACTION\tCUTOFFS")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%s\n",
						r.ID, r.Submodel, r.Version, r.Status, r.TestFraction, formatCutoffs(r.Cutoffs))
				}
				return tw.Flush()
			})
		},
	}
	ff.register(cmd, true)
	return cmd
}

func newRunsStatusCmd(a *app) *cobra.Command {
	var fraction float64

	cmd := &cobra.Command{
		Use:   "status RUN_ID STATUS",
		Short: "Set a run's status (new, active, canary or disabled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := tracking.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *tracking.Store) error {
				ctx := cmd.Context()
				switch {
				case cmd.Flags().Changed("fraction"):
					return s.ChangeStatus(ctx, args[0], status, fraction)
				case status == tracking.Active:
					return s.Enable(ctx, args[0])
				case status == tracking.Canary:
					return s.Canary(ctx, args[0])
				case status == tracking.Disabled:
					return s.Disable(ctx, args[0])
				default:
					return s.ChangeStatus(ctx, args[0], status, 0)
				}
			})
		},
	}
	cmd.Flags().Float64Var(&fraction, "fraction", 0, "Test fraction to assign with the status")
	return cmd
}

func newRunsUpdateCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "update RUN_ID=FRACTION...",
		Short: "Make exactly the given runs active with rebalanced test fractions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter(a.cfg.Tracking.Experiment)
			if err != nil {
				return err
			}
			fractions, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *tracking.Store) error {
				return s.UpdateActiveRuns(cmd.Context(), fractions, f)
			})
		},
	}
	ff.register(cmd, false)
	return cmd
}

func newRunsFractionsCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "fractions RUN_ID=FRACTION...",
		Short: "Reassign test fractions among matching runs, keeping their status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter(a.cfg.Tracking.Experiment)
			if err != nil {
				return err
			}
			fractions, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *tracking.Store) error {
				return s.ChangeTestFractions(cmd.Context(), fractions, f)
			})
		},
	}
	ff.register(cmd, true)
	return cmd
}

func parseAssignments(args []string) (map[string]float64, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("expected RUN_ID=FRACTION, got %q", arg)
		}
		raw[id] = value
	}
	return parseFloats(raw)
}

func parseFloats(m map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(m))
	var errs []error
	for k, v := range m {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		out[k] = f
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func formatCutoffs(cutoffs map[string]float64) string {
	r := report.Report{}
	for class, t := range cutoffs {
		r.Classes = append(r.Classes, report.ClassResult{Class: class, Threshold: t})
	}
	r.Sort()
	parts := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		value := strconv.FormatFloat(c.Threshold, 'g', 4, 64)
		if math.IsInf(c.Threshold, 1) {
			value = "none"
		}
		parts[i] = c.Class + "=" + value
	}
	return strings.Join(parts, ",")
}
