package cutoff

import (
	"fmt"
	"math"
)

// NoCutoff is the threshold returned when no cutoff beats classifying every
// sample as negative. No finite score reaches it.
var NoCutoff = math.Inf(1)

// Result is the best cutoff found by a sweep and the penalty it achieves.
type Result struct {
	Threshold float64
	Score     float64
}

// Step records the sweep state after one tie-block has crossed the cutoff.
// The first Step of a trace is the initial all-negative state at NoCutoff.
type Step struct {
	Threshold      float64
	Score          float64
	FalseNegatives float64
	FalsePositives float64
}

// FindSorted returns the optimal cutoff for samples already sorted by
// descending score. Samples with Score >= the returned threshold are
// predicted positive.
func FindSorted(sorted []Sample, opts ...Option) (float64, error) {
	res, err := SweepSorted(sorted, opts...)
	if err != nil {
		return 0, err
	}
	return res.Threshold, nil
}

// SweepSorted is FindSorted but also reports the penalty at the cutoff.
func SweepSorted(sorted []Sample, opts ...Option) (Result, error) {
	cfg := newConfig(opts)
	res, err := sweep(sorted, cfg, nil)
	if err != nil {
		return Result{}, err
	}
	cfg.logger.Debug("cutoff found",
		"threshold", res.Threshold,
		"score", res.Score,
		"method", cfg.method.String(),
		"samples", len(sorted),
	)
	return res, nil
}

// Trace returns the penalty after every tie-block of a sweep over
// descending-sorted samples, starting with the all-negative state.
func Trace(sorted []Sample, opts ...Option) ([]Step, error) {
	cfg := newConfig(opts)
	steps := make([]Step, 0, len(sorted)+1)
	_, err := sweep(sorted, cfg, func(s Step) {
		steps = append(steps, s)
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// denominators returns the FN and FP normalisers for a sweep over n samples
// holding the given number of positives.
func denominators(positives, n int, useRates bool) (denomPos, denomNeg float64, err error) {
	if !useRates {
		return 1, 1, nil
	}
	negatives := n - positives
	if positives == 0 || negatives == 0 {
		return 0, 0, fmt.Errorf("%w: %d positives, %d negatives", ErrDegenerateDistribution, positives, negatives)
	}
	return float64(positives), float64(negatives), nil
}

func validate(sorted []Sample, cfg config) (positives int, err error) {
	if !cfg.method.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMethod, cfg.method)
	}
	if !(cfg.weight > 0) || math.IsInf(cfg.weight, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, cfg.weight)
	}
	if len(sorted) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrInvalidInput)
	}
	for i, s := range sorted {
		if math.IsNaN(s.Score) {
			return 0, fmt.Errorf("%w: NaN score at index %d", ErrInvalidInput, i)
		}
		if i > 0 && s.Score > sorted[i-1].Score {
			return 0, fmt.Errorf("%w: samples not sorted by descending score at index %d", ErrInvalidInput, i)
		}
		if s.Positive {
			positives++
		}
	}
	return positives, nil
}

// sweep moves the cutoff down one tie-block at a time, updating the penalty
// in closed form. visit, if non-nil, sees every state including the initial one.
func sweep(sorted []Sample, cfg config, visit func(Step)) (Result, error) {
	positives, err := validate(sorted, cfg)
	if err != nil {
		return Result{}, err
	}
	n := len(sorted)
	denomPos, denomNeg, err := denominators(positives, n, cfg.useRates)
	if err != nil {
		return Result{}, err
	}

	sc := scorers[cfg.method]
	falseNegatives := float64(positives)
	falsePositives := 0.0
	score := sc.initial(falseNegatives, denomPos)
	best := Result{Threshold: NoCutoff, Score: score}
	if visit != nil {
		visit(Step{Threshold: NoCutoff, Score: score, FalseNegatives: falseNegatives})
	}

	// Invariant: falseNegatives + positives moved so far == positives.
	i := 0
	for i < n {
		threshold := sorted[i].Score
		j := 0
		var p, q float64
		for i+j < n && sorted[i+j].Score == threshold {
			if sorted[i+j].Positive {
				p++
			} else {
				q++
			}
			j++
		}
		if j == 0 {
			break
		}

		score = sc.update(score, blockMove{
			truePositives:  p,
			falsePositives: q,
			falseNegatives: falseNegatives,
			priorFalsePos:  falsePositives,
		}, cfg.weight, denomPos, denomNeg)
		falseNegatives -= p
		falsePositives += q

		if visit != nil {
			visit(Step{Threshold: threshold, Score: score, FalseNegatives: falseNegatives, FalsePositives: falsePositives})
		}
		if score < best.Score {
			best = Result{Threshold: threshold, Score: score}
		}
		i += j
	}

	// A lone sample is its own trivial cutoff.
	if n == 1 {
		best = Result{Threshold: sorted[0].Score, Score: score}
	}
	return best, nil
}
