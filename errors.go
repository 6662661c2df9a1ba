package cutoff

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrInvalidInput indicates empty input or mismatched actual/predicted lengths.
	ErrInvalidInput = errors.New("cutoff: invalid input")

	// ErrDegenerateDistribution indicates rate mode was requested but one
	// class has no members, leaving a zero denominator.
	ErrDegenerateDistribution = errors.New("cutoff: degenerate class distribution")

	// ErrInvalidWeight indicates a non-positive or non-finite false positive weight.
	ErrInvalidWeight = errors.New("cutoff: invalid false positive weight")

	// ErrInvalidMethod indicates a Method outside the supported set.
	ErrInvalidMethod = errors.New("cutoff: unknown method")
)
