package cutoff

import (
	"log/slog"
	"runtime"
)

// Option configures a cutoff search.
type Option func(*config)

type config struct {
	method   Method
	weight   float64
	useRates bool
	workers  int
	logger   *slog.Logger
}

func defaultConfig() config {
	return config{
		method:   AbsoluteDistance,
		weight:   1.0,
		useRates: true,
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMethod sets the penalty metric (default: AbsoluteDistance).
func WithMethod(m Method) Option {
	return func(c *config) {
		c.method = m
	}
}

// WithWeight sets how much a false positive costs relative to a false
// negative (default: 1). Non-positive values are rejected when the search runs.
func WithWeight(w float64) Option {
	return func(c *config) {
		c.weight = w
	}
}

// WithRates selects rate mode (true, the default), where false negatives and
// false positives are normalised by the size of their true class, or count
// mode (false), where raw counts are used.
func WithRates(useRates bool) Option {
	return func(c *config) {
		c.useRates = useRates
	}
}

// WithCounts is shorthand for WithRates(false).
func WithCounts() Option {
	return WithRates(false)
}

// WithWorkers sets how many per-class sweeps FindMulticlass runs at once
// (default: runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
