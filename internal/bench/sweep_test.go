package bench

import (
	"errors"
	"math"
	"testing"

	cutoff "github.com/jamesainslie/go-cutoff"
)

func TestSweepThresholds(t *testing.T) {
	thresholds := SweepThresholds(0.01, 0.1, 0.02)

	want := []float64{0.01, 0.03, 0.05, 0.07, 0.09}
	if len(thresholds) != len(want) {
		t.Errorf("got %d thresholds, want %d", len(thresholds), len(want))
		t.Logf("got: %v", thresholds)
		return
	}

	for i := range want {
		diff := thresholds[i] - want[i]
		if diff < -0.001 || diff > 0.001 {
			t.Errorf("threshold[%d] = %v, want %v", i, thresholds[i], want[i])
		}
	}

	if got := SweepThresholds(0, 1, 0); len(got) != 0 {
		t.Errorf("zero step should yield no thresholds, got %v", got)
	}
}

func TestCandidateThresholds(t *testing.T) {
	samples := []cutoff.Sample{{Score: 0.2}, {Score: 0.7}, {Score: 0.2}, {Score: 0.9}}
	got := CandidateThresholds(samples)

	want := []float64{math.Inf(1), 0.9, 0.7, 0.2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("threshold[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPenalty_Degenerate(t *testing.T) {
	samples := []cutoff.Sample{{Positive: true, Score: 0.4}, {Positive: true, Score: 0.6}}
	_, err := Penalty(samples, 0.5, PenaltyConfig{Method: cutoff.AbsoluteDistance, Weight: 1, UseRates: true})
	if !errors.Is(err, cutoff.ErrDegenerateDistribution) {
		t.Errorf("expected ErrDegenerateDistribution, got %v", err)
	}
}

// The incremental sweep must land on a threshold whose recomputed penalty
// equals the brute-force minimum over every candidate threshold.
func TestSweep_AgreesWithIncrementalSweep(t *testing.T) {
	corpora := []CorpusConfig{
		{Size: 200, Prevalence: 0.5, Separation: 2, Decimals: 2, Seed: 1},
		{Size: 300, Prevalence: 0.2, Separation: 1, Decimals: 1, Seed: 2},
		{Size: 150, Prevalence: 0.7, Separation: 3, Decimals: 0, Seed: 3},
	}
	methods := []cutoff.Method{cutoff.AbsoluteDistance, cutoff.DistanceSquared}
	weights := []float64{0.5, 1, 3}

	for _, cc := range corpora {
		samples, err := GenerateCorpus(cc)
		if err != nil {
			t.Fatalf("GenerateCorpus failed: %v", err)
		}
		candidates := CandidateThresholds(samples)
		sorted := cutoff.SortSamples(samples)

		for _, m := range methods {
			for _, w := range weights {
				for _, useRates := range []bool{true, false} {
					pc := PenaltyConfig{Method: m, Weight: w, UseRates: useRates}

					brute, err := Sweep(samples, candidates, pc, DefaultConfig())
					if err != nil {
						t.Fatalf("Sweep failed: %v", err)
					}
					exact, err := cutoff.SweepSorted(sorted, cutoff.WithMethod(m), cutoff.WithWeight(w), cutoff.WithRates(useRates))
					if err != nil {
						t.Fatalf("SweepSorted failed: %v", err)
					}
					recomputed, err := Penalty(samples, exact.Threshold, pc)
					if err != nil {
						t.Fatalf("Penalty failed: %v", err)
					}

					if !Within(recomputed, brute[0].Penalty, 1e-9) {
						t.Errorf("seed %d %v w=%v rates=%v: incremental %v (penalty %v), brute force %v (penalty %v)",
							cc.Seed, m, w, useRates, exact.Threshold, recomputed, brute[0].Threshold, brute[0].Penalty)
					}
					if !Within(exact.Score, recomputed, 1e-9) {
						t.Errorf("seed %d %v: running score %v drifted from recomputed %v", cc.Seed, m, exact.Score, recomputed)
					}
				}
			}
		}
	}
}

func TestSweep_OrdersByPenalty(t *testing.T) {
	samples := []cutoff.Sample{
		{Positive: true, Score: 0.9},
		{Positive: false, Score: 0.8},
		{Positive: true, Score: 0.7},
		{Positive: false, Score: 0.6},
	}
	pc := PenaltyConfig{Method: cutoff.AbsoluteDistance, Weight: 1}

	results, err := Sweep(samples, CandidateThresholds(samples), pc, DefaultConfig())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Penalty < results[i-1].Penalty {
			t.Errorf("results not sorted at %d: %+v", i, results)
		}
	}
	// 0.9 and 0.7 both leave one error; the higher threshold comes first.
	if results[0].Threshold != 0.9 {
		t.Errorf("expected 0.9 first, got %v", results[0].Threshold)
	}
	if results[0].Metrics.TruePositives != 1 {
		t.Errorf("expected metrics at 0.9, got %+v", results[0].Metrics)
	}
}
