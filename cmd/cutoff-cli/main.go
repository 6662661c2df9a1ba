package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/internal/bench"
	"github.com/jamesainslie/go-cutoff/internal/config"
)

// Set via -ldflags by the stave build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the resolved configuration and logger to every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string

	root := &cobra.Command{
		Use:           "cutoff-cli",
		Short:         "Find optimal classification cutoffs from labelled predictions",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags(), cfgPath)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "YAML run configuration")
	flags.String("method", "absolute", "Penalty metric: absolute (l1) or squared (l2)")
	flags.Float64("weight", 1.0, "False-positive weight relative to false negatives")
	flags.Bool("counts", false, "Score raw error counts instead of rates")
	flags.Int("workers", 0, "Concurrent per-class sweeps (0 = number of CPUs)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("db", "", "Run tracking database")
	flags.String("experiment", "", "Experiment to record runs under")

	root.AddCommand(
		newFindCmd(a),
		newMulticlassCmd(a),
		newScoreCmd(a),
		newRunsCmd(a),
	)
	return root
}

// setup loads the config file, applies explicitly set flags over it and
// builds the logger.
func (a *app) setup(flags *pflag.FlagSet, cfgPath string) error {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	stringFlag(flags, "method", &cfg.Method)
	stringFlag(flags, "log-level", &cfg.LogLevel)
	stringFlag(flags, "db", &cfg.Tracking.Database)
	stringFlag(flags, "experiment", &cfg.Tracking.Experiment)
	stringFlag(flags, "format", &cfg.Input.Format)
	stringFlag(flags, "input", &cfg.Input.Path)
	stringFlag(flags, "label-column", &cfg.Input.LabelColumn)
	stringFlag(flags, "labels", &cfg.Input.Labels)
	stringFlag(flags, "predictions", &cfg.Input.Predictions)
	stringFlag(flags, "report", &cfg.Output.Report)
	stringFlag(flags, "plot", &cfg.Output.Plot)
	stringFlag(flags, "cutoffs", &cfg.Output.Cutoffs)
	if flags.Changed("weight") {
		cfg.Weight, _ = flags.GetFloat64("weight")
	}
	if flags.Changed("counts") {
		counts, _ := flags.GetBool("counts")
		cfg.UseRates = !counts
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) options() ([]cutoff.Option, error) {
	return a.cfg.Options(a.logger)
}

func (a *app) penaltyConfig() bench.PenaltyConfig {
	m, _ := cutoff.ParseMethod(a.cfg.Method) // validated in setup
	return bench.PenaltyConfig{Method: m, Weight: a.cfg.Weight, UseRates: a.cfg.UseRates}
}

// stringFlag copies a flag into dst only when the user set it, so config
// file values survive flag defaults.
func stringFlag(flags *pflag.FlagSet, name string, dst *string) {
	if flags.Changed(name) {
		*dst, _ = flags.GetString(name)
	}
}

// addInputFlags registers the dataset flags shared by find and multiclass.
func addInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("format", "csv", "Input format: csv or npy")
	flags.StringP("input", "i", "", "CSV file with a label column and one probability column per class")
	flags.String("label-column", "label", "CSV column holding the actual class")
	flags.String("labels", "", ".npy file of actual labels")
	flags.String("predictions", "", ".npy file of predicted probabilities")
	flags.String("report", "", "Write the JSON report to this file")
	flags.Bool("json", false, "Print the JSON report instead of a table")
}
