package tracking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrRunNotFound indicates a run ID that is not in the store, or not
	// among the runs matched by a filter.
	ErrRunNotFound = errors.New("tracking: run not found")

	// ErrNoExperiment indicates a missing experiment name.
	ErrNoExperiment = errors.New("tracking: experiment name required")

	// ErrInvalidFraction indicates test fractions that cannot be rebalanced.
	ErrInvalidFraction = errors.New("tracking: test fractions must sum to a positive value")

	// ErrInvalidVersion indicates a malformed semantic version.
	ErrInvalidVersion = errors.New("tracking: invalid version")
)

// Status is the production state of a tracked model run.
type Status int

const (
	// Disabled runs are no longer used.
	Disabled Status = iota
	// New runs were trained but not yet evaluated for production.
	New
	// Active runs serve production traffic.
	Active
	// Canary runs make predictions whose results are not used yet.
	Canary
)

func (s Status) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case New:
		return "new"
	case Active:
		return "active"
	case Canary:
		return "canary"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled":
		return Disabled, nil
	case "new":
		return New, nil
	case "active":
		return Active, nil
	case "canary":
		return Canary, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// Version is a major.minor.micro model version.
type Version struct {
	Major, Minor, Micro int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// ParseVersion parses "1", "1.2" or "1.2.3", with an optional leading "v".
// Missing parts are zero.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(trimmed, ".")
	if trimmed == "" || len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Micro: nums[2]}, nil
}

// RebalanceFractions scales test fractions so they sum to one. The input is
// not modified.
func RebalanceFractions(fractions map[string]float64) (map[string]float64, error) {
	total := decimal.Zero
	for _, f := range fractions {
		total = total.Add(decimal.NewFromFloat(f))
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total %s", ErrInvalidFraction, total)
	}

	out := make(map[string]float64, len(fractions))
	for id, f := range fractions {
		out[id] = decimal.NewFromFloat(f).Div(total).InexactFloat64()
	}
	return out, nil
}
