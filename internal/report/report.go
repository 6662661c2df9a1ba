// Package report renders cutoff search results as JSON, terminal tables and
// penalty-curve plots.
package report

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/internal/bench"
)

// ClassResult is the cutoff chosen for one class and how it performs.
type ClassResult struct {
	Class     string
	Threshold float64
	Penalty   float64
	Metrics   bench.Metrics
}

// Report summarises one cutoff run.
type Report struct {
	Method   cutoff.Method
	Weight   float64
	UseRates bool
	Samples  int
	Classes  []ClassResult
}

// Evaluate scores samples at threshold for the report.
func Evaluate(class string, samples []cutoff.Sample, threshold float64, pc bench.PenaltyConfig) (ClassResult, error) {
	penalty, err := bench.Penalty(samples, threshold, pc)
	if err != nil {
		return ClassResult{}, fmt.Errorf("class %s: %w", class, err)
	}
	cfg := bench.DefaultConfig()
	cfg.Threshold = threshold
	return ClassResult{
		Class:     class,
		Threshold: threshold,
		Penalty:   penalty,
		Metrics:   bench.Evaluate(samples, cfg),
	}, nil
}

// Sort orders classes by name.
func (r *Report) Sort() {
	sort.Slice(r.Classes, func(i, j int) bool { return r.Classes[i].Class < r.Classes[j].Class })
}

// Cutoffs returns a new class -> threshold map.
func (r Report) Cutoffs() map[string]float64 {
	out := make(map[string]float64, len(r.Classes))
	for _, c := range r.Classes {
		out[c.Class] = c.Threshold
	}
	return out
}

// Struct converts the report to a protobuf Struct.
func (r Report) Struct() (*structpb.Struct, error) {
	classes := make([]any, 0, len(r.Classes))
	for _, c := range r.Classes {
		// JSON numbers cannot hold +Inf; NoCutoff is written as null.
		var threshold any = c.Threshold
		noCutoff := math.IsInf(c.Threshold, 1)
		if noCutoff {
			threshold = nil
		}
		classes = append(classes, map[string]any{
			"class":           c.Class,
			"threshold":       threshold,
			"no_cutoff":       noCutoff,
			"penalty":         c.Penalty,
			"true_positives":  c.Metrics.TruePositives,
			"false_positives": c.Metrics.FalsePositives,
			"false_negatives": c.Metrics.FalseNegatives,
			"true_negatives":  c.Metrics.TrueNegatives,
			"precision":       c.Metrics.Precision,
			"recall":          c.Metrics.Recall,
			"f1":              c.Metrics.F1,
		})
	}
	return structpb.NewStruct(map[string]any{
		"method":    r.Method.String(),
		"weight":    r.Weight,
		"use_rates": r.UseRates,
		"samples":   r.Samples,
		"classes":   classes,
	})
}

// MarshalJSON encodes the report as indented protobuf JSON.
func (r Report) MarshalJSON() ([]byte, error) {
	s, err := r.Struct()
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
}

// DecodeCutoffs reads the class -> threshold map back out of report JSON.
func DecodeCutoffs(data []byte) (map[string]float64, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	list := s.GetFields()["classes"].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("decoding report: no classes")
	}
	out := make(map[string]float64, len(list.GetValues()))
	for _, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		threshold := fields["threshold"].GetNumberValue()
		if fields["no_cutoff"].GetBoolValue() {
			threshold = cutoff.NoCutoff
		}
		out[fields["class"].GetStringValue()] = threshold
	}
	return out, nil
}
