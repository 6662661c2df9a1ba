package cutoff

import (
	"fmt"
	"sort"
)

// Sample is one scored observation: whether it is actually positive and the
// model's predicted probability that it is.
type Sample struct {
	Positive bool
	Score    float64
}

// Pair zips actual labels and predicted scores into samples.
func Pair(actual []bool, predicted []float64) ([]Sample, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("%w: %d labels but %d predictions", ErrInvalidInput, len(actual), len(predicted))
	}
	samples := make([]Sample, len(actual))
	for i := range actual {
		samples[i] = Sample{Positive: actual[i], Score: predicted[i]}
	}
	return samples, nil
}

// SortSamples returns a copy of samples ordered by descending score.
// The relative order of equal scores is unspecified.
func SortSamples(samples []Sample) []Sample {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}
