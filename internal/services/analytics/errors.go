package analytics

import "errors"

var (
	// ErrInvalidTimestamp is returned when a tick time is not a valid instant.
	ErrInvalidTimestamp = errors.New("analytics: invalid timestamp")
	// ErrDegenerateInput is returned for too-short, mismatched or zero-variance input.
	ErrDegenerateInput = errors.New("analytics: degenerate input")
	// ErrNoOverlap is returned when two series share no bucket.
	ErrNoOverlap = errors.New("analytics: no overlapping timestamps")
	// ErrInsufficientHistory marks a series too short for the stationarity test.
	// TestStationarity reports it as a nil statistic rather than returning it.
	ErrInsufficientHistory = errors.New("analytics: insufficient history")
)
