// Package config loads the YAML run configuration used by cutoff-cli.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	cutoff "github.com/jamesainslie/go-cutoff"
)

// Config is a cutoff run configuration.
type Config struct {
	Method   string  `yaml:"method"`
	Weight   float64 `yaml:"weight"`
	UseRates bool    `yaml:"use_rates"`
	Workers  int     `yaml:"workers"`
	LogLevel string  `yaml:"log_level"`

	Input struct {
		Format      string `yaml:"format"` // csv or npy
		Path        string `yaml:"path"`
		LabelColumn string `yaml:"label_column"`
		Labels      string `yaml:"labels"`
		Predictions string `yaml:"predictions"`
	} `yaml:"input"`

	Output struct {
		Report  string `yaml:"report"`
		Plot    string `yaml:"plot"`
		Cutoffs string `yaml:"cutoffs"`
	} `yaml:"output"`

	Tracking struct {
		Database   string `yaml:"database"`
		Experiment string `yaml:"experiment"`
	} `yaml:"tracking"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.Method = "absolute"
	c.Weight = 1.0
	c.UseRates = true
	c.LogLevel = "info"
	c.Input.Format = "csv"
	c.Input.LabelColumn = "label"
	c.Tracking.Database = "cutoff-runs.db"
	return c
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields a cutoff search depends on.
func (c Config) Validate() error {
	var errs []error
	if _, err := cutoff.ParseMethod(c.Method); err != nil {
		errs = append(errs, err)
	}
	if !(c.Weight > 0) {
		errs = append(errs, fmt.Errorf("%w: %v", cutoff.ErrInvalidWeight, c.Weight))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	switch c.Input.Format {
	case "csv", "npy":
	default:
		errs = append(errs, fmt.Errorf("unknown input format %q", c.Input.Format))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options converts the configuration into cutoff search options.
func (c Config) Options(logger *slog.Logger) ([]cutoff.Option, error) {
	m, err := cutoff.ParseMethod(c.Method)
	if err != nil {
		return nil, err
	}
	opts := []cutoff.Option{
		cutoff.WithMethod(m),
		cutoff.WithWeight(c.Weight),
		cutoff.WithRates(c.UseRates),
		cutoff.WithLogger(logger),
	}
	if c.Workers > 0 {
		opts = append(opts, cutoff.WithWorkers(c.Workers))
	}
	return opts, nil
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
