package cutoff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FindMulticlassMatrix is FindMulticlass over a prediction matrix with one
// row per sample and one column per class.
func FindMulticlassMatrix[K comparable](actual []K, predicted mat.Matrix, classIndex map[K]int, opts ...Option) (map[K]float64, error) {
	rows, cols := predicted.Dims()
	if len(actual) != rows {
		return nil, fmt.Errorf("%w: %d labels but %d prediction rows", ErrInvalidInput, len(actual), rows)
	}
	column := func(index int) ([]float64, error) {
		if index >= cols {
			return nil, fmt.Errorf("%w: matrix has %d columns, need column %d", ErrInvalidInput, cols, index)
		}
		return mat.Col(nil, index, predicted), nil
	}
	return dispatch(actual, classIndex, column, newConfig(opts))
}

// FindColumn returns the cutoff for one column of a prediction matrix
// against 0/1 labels.
func FindColumn(actual []float64, predicted mat.Matrix, index int, opts ...Option) (float64, error) {
	rows, cols := predicted.Dims()
	if index < 0 || index >= cols {
		return 0, fmt.Errorf("%w: matrix has %d columns, need column %d", ErrInvalidInput, cols, index)
	}
	if len(actual) != rows {
		return 0, fmt.Errorf("%w: %d labels but %d prediction rows", ErrInvalidInput, len(actual), rows)
	}
	return FindLabels(actual, mat.Col(nil, index, predicted), opts...)
}
