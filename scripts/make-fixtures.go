//go:build ignore

// Generate scored example datasets for trying cutoff-cli.
// Usage: go run ./scripts/make-fixtures.go [-out testdata]
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/internal/bench"
	"github.com/jamesainslie/go-cutoff/internal/dataset"
)

// Per-class corpus settings for the multiclass CSV.
var classes = []struct {
	Name       string
	Prevalence float64
	Separation float64
}{
	{"spam", 0.2, 3.0},
	{"promo", 0.3, 1.5},
	{"ham", 0.5, 2.0},
}

func main() {
	out := flag.String("out", "testdata", "Output directory")
	size := flag.Int("size", 2000, "Samples per dataset")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := writeBinary(*out, *size); err != nil {
		fmt.Fprintf(os.Stderr, "error writing binary dataset: %v\n", err)
		os.Exit(1)
	}
	if err := writeMulticlass(*out, *size); err != nil {
		fmt.Fprintf(os.Stderr, "error writing multiclass dataset: %v\n", err)
		os.Exit(1)
	}
}

// writeBinary writes labels.npy and predictions.npy for a single class.
func writeBinary(dir string, size int) error {
	cfg := bench.DefaultCorpusConfig()
	cfg.Size = size
	samples, err := bench.GenerateCorpus(cfg)
	if err != nil {
		return err
	}

	actual, scores := bench.Split(samples)
	labels := make([]float64, len(actual))
	for i, a := range actual {
		if a {
			labels[i] = 1
		}
	}
	if err := dataset.WriteVector(filepath.Join(dir, "labels.npy"), labels); err != nil {
		return err
	}
	if err := dataset.WriteVector(filepath.Join(dir, "predictions.npy"), scores); err != nil {
		return err
	}
	fmt.Printf("Wrote %d binary samples to %s\n", len(samples), dir)
	return nil
}

// writeMulticlass writes scored.csv: a label column and one one-vs-rest
// score column per class. Each row's label is the class whose corpus drew
// it positive first.
func writeMulticlass(dir string, size int) error {
	scores := mat.NewDense(size, len(classes), nil)
	labels := make([]string, size)
	for c, class := range classes {
		samples, err := bench.GenerateCorpus(bench.CorpusConfig{
			Size:       size,
			Prevalence: class.Prevalence,
			Separation: class.Separation,
			Decimals:   3,
			Seed:       int64(c + 1),
		})
		if err != nil {
			return err
		}
		fill(labels, scores, c, class.Name, samples)
	}
	for i := range labels {
		if labels[i] == "" {
			labels[i] = classes[len(classes)-1].Name
		}
	}

	f, err := os.Create(filepath.Join(dir, "scored.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"label"}
	for _, c := range classes {
		header = append(header, c.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, label := range labels {
		record := []string{label}
		for c := range classes {
			record = append(record, strconv.FormatFloat(scores.At(i, c), 'f', 3, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	fmt.Printf("Wrote %d multiclass samples to %s\n", size, f.Name())
	return nil
}

func fill(labels []string, scores *mat.Dense, col int, name string, samples []cutoff.Sample) {
	for i, s := range samples {
		scores.Set(i, col, s.Score)
		if s.Positive && labels[i] == "" {
			labels[i] = name
		}
	}
}
