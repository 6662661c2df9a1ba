package bench

import cutoff "github.com/jamesainslie/go-cutoff"

// Config holds evaluation parameters.
type Config struct {
	Threshold       float64 // samples scoring >= Threshold are predicted positive
	PrecisionWeight float64
	RecallWeight    float64
}

// DefaultConfig returns default evaluation configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:       0.5,
		PrecisionWeight: 1.0,
		RecallWeight:    1.0,
	}
}

// Metrics holds evaluation results.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	TrueNegatives  int
	Precision      float64
	Recall         float64
	F1             float64
	WeightedScore  float64
}

// Evaluate classifies samples at cfg.Threshold and compares against their labels.
func Evaluate(samples []cutoff.Sample, cfg Config) Metrics {
	var tp, fp, fn, tn int
	for _, s := range samples {
		predicted := s.Score >= cfg.Threshold
		switch {
		case predicted && s.Positive:
			tp++
		case predicted:
			fp++
		case s.Positive:
			fn++
		default:
			tn++
		}
	}
	m := ComputeMetrics(tp, fp, fn, cfg)
	m.TrueNegatives = tn
	return m
}

// ComputeMetrics derives precision, recall, F1 and the weighted score from
// confusion counts.
func ComputeMetrics(tp, fp, fn int, cfg Config) Metrics {
	m := Metrics{
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
	}

	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	wp := cfg.PrecisionWeight
	wr := cfg.RecallWeight
	if wp+wr > 0 {
		m.WeightedScore = (wp*m.Precision + wr*m.Recall) / (wp + wr)
	}

	return m
}
