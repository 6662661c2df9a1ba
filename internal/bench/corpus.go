// Package bench provides evaluation and benchmarking utilities for cutoff
// search: confusion metrics at a threshold, a brute-force penalty sweep and
// synthetic scored corpora.
package bench

import (
	"errors"
	"math"
	"math/rand"

	cutoff "github.com/jamesainslie/go-cutoff"
)

// CorpusConfig describes a synthetic binary classification corpus.
type CorpusConfig struct {
	Size       int
	Prevalence float64 // fraction of actual positives
	Separation float64 // logit gap between positive and negative class means
	Decimals   int     // round scores to this many decimals; 0 keeps full precision
	Seed       int64
}

// DefaultCorpusConfig returns a moderately separable, balanced corpus.
func DefaultCorpusConfig() CorpusConfig {
	return CorpusConfig{
		Size:       10000,
		Prevalence: 0.5,
		Separation: 2.0,
		Decimals:   2,
		Seed:       1,
	}
}

// GenerateCorpus draws labelled samples whose scores are the sigmoid of a
// unit normal logit shifted by ±Separation/2. Rounding produces tie-blocks.
func GenerateCorpus(cfg CorpusConfig) ([]cutoff.Sample, error) {
	if cfg.Size <= 0 {
		return nil, errors.New("corpus size must be positive")
	}
	if cfg.Prevalence < 0 || cfg.Prevalence > 1 {
		return nil, errors.New("prevalence must be within [0, 1]")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	scale := math.Pow(10, float64(cfg.Decimals))

	samples := make([]cutoff.Sample, cfg.Size)
	for i := range samples {
		positive := rng.Float64() < cfg.Prevalence
		shift := -cfg.Separation / 2
		if positive {
			shift = cfg.Separation / 2
		}
		score := sigmoid(rng.NormFloat64() + shift)
		if cfg.Decimals > 0 {
			score = math.Round(score*scale) / scale
		}
		samples[i] = cutoff.Sample{Positive: positive, Score: score}
	}
	return samples, nil
}

// Split separates samples into parallel label and score slices.
func Split(samples []cutoff.Sample) ([]bool, []float64) {
	actual := make([]bool, len(samples))
	predicted := make([]float64, len(samples))
	for i, s := range samples {
		actual[i] = s.Positive
		predicted[i] = s.Score
	}
	return actual, predicted
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
