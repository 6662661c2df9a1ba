package cutoff

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FindMulticlass returns one cutoff per class using one-vs-rest sweeps.
// predicted[i][classIndex[c]] is the predicted probability that sample i
// belongs to class c. Classes are swept concurrently (see WithWorkers).
//
// If any class fails, the whole call fails and no cutoffs are returned.
func FindMulticlass[K comparable](actual []K, predicted [][]float64, classIndex map[K]int, opts ...Option) (map[K]float64, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("%w: %d labels but %d prediction rows", ErrInvalidInput, len(actual), len(predicted))
	}
	column := func(index int) ([]float64, error) {
		scores := make([]float64, len(predicted))
		for i, row := range predicted {
			if index >= len(row) {
				return nil, fmt.Errorf("%w: row %d has %d columns, need column %d", ErrInvalidInput, i, len(row), index)
			}
			scores[i] = row[index]
		}
		return scores, nil
	}
	return dispatch(actual, classIndex, column, newConfig(opts))
}

type classJob[K comparable] struct {
	class K
	index int
}

// dispatch runs one binary sweep per class. column returns the scores for
// a prediction column.
func dispatch[K comparable](actual []K, classIndex map[K]int, column func(int) ([]float64, error), cfg config) (map[K]float64, error) {
	if len(classIndex) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidInput)
	}
	jobs := make([]classJob[K], 0, len(classIndex))
	for class, index := range classIndex {
		if index < 0 {
			return nil, fmt.Errorf("%w: class %v has negative column %d", ErrInvalidInput, class, index)
		}
		jobs = append(jobs, classJob[K]{class: class, index: index})
	}

	thresholds := make([]float64, len(jobs))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.workers)
	for k, job := range jobs {
		g.Go(func() error {
			// Another class already failed.
			if ctx.Err() != nil {
				return nil
			}
			scores, err := column(job.index)
			if err != nil {
				return fmt.Errorf("class %v: %w", job.class, err)
			}
			labels := make([]bool, len(actual))
			for i, a := range actual {
				labels[i] = a == job.class
			}
			samples, err := Pair(labels, scores)
			if err != nil {
				return fmt.Errorf("class %v: %w", job.class, err)
			}
			res, err := sweep(SortSamples(samples), cfg, nil)
			if err != nil {
				return fmt.Errorf("class %v: %w", job.class, err)
			}
			thresholds[k] = res.Threshold
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cutoffs := make(map[K]float64, len(jobs))
	for k, job := range jobs {
		cutoffs[job.class] = thresholds[k]
		cfg.logger.Debug("class cutoff", "class", job.class, "column", job.index, "threshold", thresholds[k])
	}
	return cutoffs, nil
}
