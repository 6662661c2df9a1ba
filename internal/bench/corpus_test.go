package bench

import (
	"math"
	"testing"
)

func TestGenerateCorpus(t *testing.T) {
	cfg := DefaultCorpusConfig()

	a, err := GenerateCorpus(cfg)
	if err != nil {
		t.Fatalf("GenerateCorpus failed: %v", err)
	}
	if len(a) != cfg.Size {
		t.Fatalf("got %d samples, want %d", len(a), cfg.Size)
	}

	b, err := GenerateCorpus(cfg)
	if err != nil {
		t.Fatalf("GenerateCorpus failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different sample at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	positives := 0
	for _, s := range a {
		if s.Positive {
			positives++
		}
		if s.Score < 0 || s.Score > 1 {
			t.Fatalf("score out of range: %v", s.Score)
		}
		if rounded := math.Round(s.Score*100) / 100; rounded != s.Score {
			t.Fatalf("score %v not rounded to 2 decimals", s.Score)
		}
	}
	if frac := float64(positives) / float64(len(a)); frac < 0.45 || frac > 0.55 {
		t.Errorf("prevalence %v far from 0.5", frac)
	}
}

func TestGenerateCorpus_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  CorpusConfig
	}{
		{name: "zero size", cfg: CorpusConfig{Size: 0, Prevalence: 0.5}},
		{name: "prevalence above one", cfg: CorpusConfig{Size: 10, Prevalence: 1.5}},
		{name: "negative prevalence", cfg: CorpusConfig{Size: 10, Prevalence: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateCorpus(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSplit(t *testing.T) {
	samples, err := GenerateCorpus(CorpusConfig{Size: 5, Prevalence: 0.5, Separation: 1, Seed: 4})
	if err != nil {
		t.Fatalf("GenerateCorpus failed: %v", err)
	}
	actual, predicted := Split(samples)
	for i, s := range samples {
		if actual[i] != s.Positive || predicted[i] != s.Score {
			t.Errorf("index %d: got (%v, %v), want %+v", i, actual[i], predicted[i], s)
		}
	}
}
