package bench

import (
	"errors"
	"fmt"
	"math"
	"sort"

	cutoff "github.com/jamesainslie/go-cutoff"
)

// PenaltyConfig selects how a threshold's penalty is scored.
type PenaltyConfig struct {
	Method   cutoff.Method
	Weight   float64
	UseRates bool
}

// SweepResult holds the penalty and metrics for one threshold value.
type SweepResult struct {
	Threshold float64
	Penalty   float64
	Metrics   Metrics
}

// SweepThresholds generates threshold values from min to max with given step.
func SweepThresholds(min, max, step float64) []float64 {
	var thresholds []float64
	if step <= 0 {
		return thresholds
	}
	for i := 0; ; i++ {
		t := min + float64(i)*step
		if t >= max {
			break
		}
		thresholds = append(thresholds, t)
	}
	return thresholds
}

// CandidateThresholds returns every distinct score in descending order,
// preceded by cutoff.NoCutoff. These are the only thresholds at which the
// confusion matrix changes.
func CandidateThresholds(samples []cutoff.Sample) []float64 {
	sorted := cutoff.SortSamples(samples)
	thresholds := []float64{cutoff.NoCutoff}
	for i, s := range sorted {
		if i == 0 || s.Score != sorted[i-1].Score {
			thresholds = append(thresholds, s.Score)
		}
	}
	return thresholds
}

// Penalty recomputes the penalty of a single threshold from scratch.
func Penalty(samples []cutoff.Sample, threshold float64, cfg PenaltyConfig) (float64, error) {
	if len(samples) == 0 {
		return 0, errors.New("no samples")
	}
	var positives, fn, fp float64
	for _, s := range samples {
		predicted := s.Score >= threshold
		if s.Positive {
			positives++
			if !predicted {
				fn++
			}
		} else if predicted {
			fp++
		}
	}

	dp, dn := 1.0, 1.0
	if cfg.UseRates {
		dp, dn = positives, float64(len(samples))-positives
		if dp == 0 || dn == 0 {
			return 0, fmt.Errorf("%w: %v positives, %v negatives", cutoff.ErrDegenerateDistribution, dp, dn)
		}
	}

	switch cfg.Method {
	case cutoff.AbsoluteDistance:
		return fn/dp + cfg.Weight*fp/dn, nil
	case cutoff.DistanceSquared:
		return (fn/dp)*(fn/dp) + cfg.Weight*(fp/dn)*(fp/dn), nil
	default:
		return 0, fmt.Errorf("%w: %v", cutoff.ErrInvalidMethod, cfg.Method)
	}
}

// Sweep evaluates every threshold independently, O(n) each, and returns
// results sorted by penalty ascending. Equal penalties keep the higher
// threshold first.
func Sweep(samples []cutoff.Sample, thresholds []float64, cfg PenaltyConfig, eval Config) ([]SweepResult, error) {
	results := make([]SweepResult, 0, len(thresholds))
	for _, threshold := range thresholds {
		p, err := Penalty(samples, threshold, cfg)
		if err != nil {
			return nil, err
		}
		eval.Threshold = threshold
		results = append(results, SweepResult{
			Threshold: threshold,
			Penalty:   p,
			Metrics:   Evaluate(samples, eval),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Penalty != results[j].Penalty {
			return results[i].Penalty < results[j].Penalty
		}
		return results[i].Threshold > results[j].Threshold
	})

	return results, nil
}

// Within reports whether two penalties agree to a relative tolerance.
func Within(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
