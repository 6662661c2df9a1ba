// Package dataset loads ground-truth labels and prediction matrices from
// .npy and CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ErrNoLabelColumn is returned when a CSV header lacks the label column.
var ErrNoLabelColumn = errors.New("dataset: label column not found")

// Dataset holds one label per sample and a samples x classes matrix of
// predicted probabilities. Classes names the matrix columns.
type Dataset struct {
	Labels      []string
	Classes     []string
	Predictions *mat.Dense
}

// ClassIndex maps each class name to its prediction column. The map is new
// on every call.
func (d *Dataset) ClassIndex() map[string]int {
	index := make(map[string]int, len(d.Classes))
	for i, c := range d.Classes {
		index[c] = i
	}
	return index
}

// Binary returns one-vs-rest labels and the prediction column for class.
func (d *Dataset) Binary(class string) ([]bool, []float64, error) {
	col := -1
	for i, c := range d.Classes {
		if c == class {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, nil, fmt.Errorf("class %q not among %v", class, d.Classes)
	}
	actual := make([]bool, len(d.Labels))
	for i, l := range d.Labels {
		actual[i] = l == class
	}
	return actual, mat.Col(nil, col, d.Predictions), nil
}

// LoadNpy reads numeric labels (a 1-D float64 or int64 array) and a
// prediction array. A 1-D prediction array is one positive-class column,
// named "1"; a 2-D array has columns named "0".."k-1".
func LoadNpy(labelsPath, predictionsPath string) (*Dataset, error) {
	labels, err := readVector(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	preds, err := ReadMatrix(predictionsPath)
	if err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}

	rows, cols := preds.Dims()
	if rows != len(labels) {
		return nil, fmt.Errorf("%d labels but %d prediction rows", len(labels), rows)
	}

	d := &Dataset{
		Labels:      make([]string, len(labels)),
		Predictions: preds,
	}
	for i, v := range labels {
		d.Labels[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if cols == 1 {
		d.Classes = []string{"1"}
	} else {
		d.Classes = make([]string, cols)
		for c := range d.Classes {
			d.Classes[c] = strconv.Itoa(c)
		}
	}
	return d, nil
}

// ReadMatrix reads a 1-D or 2-D float64 .npy array as a matrix. A 1-D
// array becomes a single column.
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}

	shape := r.Header.Descr.Shape
	switch len(shape) {
	case 1:
		var v []float64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return mat.NewDense(len(v), 1, v), nil
	case 2:
		m := &mat.Dense{}
		if err := r.Read(m); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: unsupported shape %v", path, shape)
	}
}

func readVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}
	if len(r.Header.Descr.Shape) != 1 {
		return nil, fmt.Errorf("%s: want a 1-D array, got shape %v", path, r.Header.Descr.Shape)
	}

	switch r.Header.Descr.Type {
	case "<i8", "int64":
		var ints []int64
		if err := r.Read(&ints); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		v := make([]float64, len(ints))
		for i, x := range ints {
			v[i] = float64(x)
		}
		return v, nil
	default:
		var v []float64
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return v, nil
	}
}

// WriteVector writes values as a 1-D float64 .npy array.
func WriteVector(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, values); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteMatrix writes m as a 2-D float64 .npy array.
func WriteMatrix(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, m); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path, labelColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadCSV(f, labelColumn)
}

// LoadCSV reads a CSV with a header row. labelColumn holds the actual class
// of each row; every other column is the predicted probability of the class
// named by its header.
func LoadCSV(r io.Reader, labelColumn string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	labelIdx := -1
	var classes []string
	var classCols []int
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == labelColumn {
			labelIdx = i
			continue
		}
		classes = append(classes, h)
		classCols = append(classCols, i)
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoLabelColumn, labelColumn)
	}
	if len(classes) == 0 {
		return nil, errors.New("no prediction columns")
	}

	var labels []string
	var data []float64
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		labels = append(labels, strings.TrimSpace(record[labelIdx]))
		for _, c := range classCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[c], err)
			}
			data = append(data, v)
		}
	}
	if len(labels) == 0 {
		return nil, errors.New("no data rows")
	}

	return &Dataset{
		Labels:      labels,
		Classes:     classes,
		Predictions: mat.NewDense(len(labels), len(classes), data),
	}, nil
}
