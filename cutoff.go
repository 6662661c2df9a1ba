package cutoff

import "fmt"

// Find returns the optimal cutoff for actual labels and predicted positive
// probabilities given in any order. Defaults: AbsoluteDistance, weight 1,
// rate mode.
func Find(actual []bool, predicted []float64, opts ...Option) (float64, error) {
	samples, err := Pair(actual, predicted)
	if err != nil {
		return 0, err
	}
	return FindSorted(SortSamples(samples), opts...)
}

// FindLabels is Find for numeric labels, where 1 marks an actual positive
// and 0 an actual negative.
func FindLabels(actual []float64, predicted []float64, opts ...Option) (float64, error) {
	labels, err := BinaryLabels(actual)
	if err != nil {
		return 0, err
	}
	return Find(labels, predicted, opts...)
}

// BinaryLabels converts 0/1 labels to booleans.
func BinaryLabels(actual []float64) ([]bool, error) {
	labels := make([]bool, len(actual))
	for i, v := range actual {
		switch v {
		case 1:
			labels[i] = true
		case 0:
		default:
			return nil, fmt.Errorf("%w: label %v at index %d is not 0 or 1", ErrInvalidInput, v, i)
		}
	}
	return labels, nil
}
