package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func TestLoadCSV(t *testing.T) {
	input := `label,cat,dog
cat, 0.8, 0.2
dog, 0.3, 0.7
dog, 0.4, 0.6
`
	d, err := LoadCSV(strings.NewReader(input), "label")
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if len(d.Labels) != 3 || d.Labels[1] != "dog" {
		t.Errorf("unexpected labels %v", d.Labels)
	}
	if len(d.Classes) != 2 || d.Classes[0] != "cat" || d.Classes[1] != "dog" {
		t.Errorf("unexpected classes %v", d.Classes)
	}
	if got := d.Predictions.At(2, 1); got != 0.6 {
		t.Errorf("Predictions.At(2,1) = %v, want 0.6", got)
	}

	index := d.ClassIndex()
	if index["dog"] != 1 {
		t.Errorf("ClassIndex()[dog] = %d, want 1", index["dog"])
	}

	actual, scores, err := d.Binary("cat")
	if err != nil {
		t.Fatalf("Binary failed: %v", err)
	}
	if !actual[0] || actual[1] || scores[0] != 0.8 {
		t.Errorf("unexpected binary view %v %v", actual, scores)
	}
	if _, _, err := d.Binary("bird"); err == nil {
		t.Error("expected error for unknown class")
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "missing label column", input: "y,a\n1,0.5\n", wantErr: ErrNoLabelColumn},
		{name: "bad probability", input: "label,a\nx,high\n"},
		{name: "no rows", input: "label,a\n"},
		{name: "no prediction columns", input: "label\nx\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input), "label")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadNpy_Binary(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.npy")
	predsPath := filepath.Join(dir, "preds.npy")

	if err := WriteVector(labelsPath, []float64{1, 0, 1}); err != nil {
		t.Fatalf("WriteVector failed: %v", err)
	}
	if err := WriteVector(predsPath, []float64{0.9, 0.2, 0.6}); err != nil {
		t.Fatalf("WriteVector failed: %v", err)
	}

	d, err := LoadNpy(labelsPath, predsPath)
	if err != nil {
		t.Fatalf("LoadNpy failed: %v", err)
	}
	if len(d.Classes) != 1 || d.Classes[0] != "1" {
		t.Errorf("unexpected classes %v", d.Classes)
	}
	actual, scores, err := d.Binary("1")
	if err != nil {
		t.Fatalf("Binary failed: %v", err)
	}
	if !actual[0] || actual[1] || scores[2] != 0.6 {
		t.Errorf("unexpected binary view %v %v", actual, scores)
	}
}

func TestLoadNpy_MulticlassIntLabels(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.npy")
	predsPath := filepath.Join(dir, "preds.npy")

	f, err := os.Create(labelsPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := npyio.Write(f, []int64{0, 2, 1}); err != nil {
		t.Fatalf("npyio.Write failed: %v", err)
	}
	_ = f.Close()

	preds := mat.NewDense(3, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.2, 0.7,
		0.2, 0.6, 0.2,
	})
	if err := WriteMatrix(predsPath, preds); err != nil {
		t.Fatalf("WriteMatrix failed: %v", err)
	}

	d, err := LoadNpy(labelsPath, predsPath)
	if err != nil {
		t.Fatalf("LoadNpy failed: %v", err)
	}
	if d.Labels[1] != "2" {
		t.Errorf("expected label \"2\", got %q", d.Labels[1])
	}
	if len(d.Classes) != 3 || d.Classes[2] != "2" {
		t.Errorf("unexpected classes %v", d.Classes)
	}
	if !mat.Equal(d.Predictions, preds) {
		t.Error("predictions did not round-trip")
	}
}

func TestLoadNpy_RowMismatch(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.npy")
	predsPath := filepath.Join(dir, "preds.npy")

	if err := WriteVector(labelsPath, []float64{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := WriteVector(predsPath, []float64{0.9, 0.2, 0.6}); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadNpy(labelsPath, predsPath); err == nil {
		t.Error("expected error for mismatched rows")
	}
}

func TestLoadNpy_MissingFile(t *testing.T) {
	_, err := LoadNpy(filepath.Join(t.TempDir(), "none.npy"), "also-none.npy")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
