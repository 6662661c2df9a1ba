package cutoff

import (
	"fmt"
	"strings"
)

// Method selects the penalty metric minimised by the sweep.
type Method int

const (
	// AbsoluteDistance penalises FN/denomPos + w*FP/denomNeg (L1).
	AbsoluteDistance Method = iota + 1

	// DistanceSquared penalises (FN/denomPos)^2 + w*(FP/denomNeg)^2 (L2).
	DistanceSquared
)

// String returns the canonical name of m.
func (m Method) String() string {
	switch m {
	case AbsoluteDistance:
		return "absolute"
	case DistanceSquared:
		return "squared"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Valid reports whether m is a supported metric.
func (m Method) Valid() bool {
	_, ok := scorers[m]
	return ok
}

// ParseMethod parses a metric name. It accepts "absolute", "l1", "squared"
// and "l2", case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "abs", "l1":
		return AbsoluteDistance, nil
	case "squared", "sq", "l2":
		return DistanceSquared, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
}

// blockMove describes one tie-block crossing from the negative side of the
// cutoff to the positive side.
type blockMove struct {
	truePositives  float64 // p: actual positives in the block
	falsePositives float64 // q: actual negatives in the block

	// Confusion totals before the block moves.
	falseNegatives float64
	priorFalsePos  float64
}

// scorer holds the closed-form penalty formulas for one Method.
type scorer struct {
	initial func(falseNegatives, denomPos float64) float64
	update  func(score float64, mv blockMove, weight, denomPos, denomNeg float64) float64
}

// scorers is the dispatch table for every supported Method. Keep the
// formulas side by side.
var scorers = map[Method]scorer{
	AbsoluteDistance: {
		initial: func(fn, dp float64) float64 {
			return fn / dp
		},
		update: func(s float64, mv blockMove, w, dp, dn float64) float64 {
			return s - mv.truePositives/dp + mv.falsePositives*w/dn
		},
	},
	DistanceSquared: {
		initial: func(fn, dp float64) float64 {
			return (fn * fn) / (dp * dp)
		},
		update: func(s float64, mv blockMove, w, dp, dn float64) float64 {
			p, q := mv.truePositives, mv.falsePositives
			adj := (p*p - 2*p*mv.falseNegatives) / (dp * dp)
			adj += w * (q*q + 2*mv.priorFalsePos*q) / (dn * dn)
			return s + adj
		},
	},
}
