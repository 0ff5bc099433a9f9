package repository

import "time"

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// bucketWidths maps each supported timeframe to its bucket width.
// New resolutions are added here.
var bucketWidths = map[Timeframe]time.Duration{
	TF1s: time.Second,
	TF1m: time.Minute,
	TF5m: 5 * time.Minute,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := bucketWidths[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Width returns the bucket width, or 0 for an unknown timeframe.
func (tf Timeframe) Width() time.Duration {
	return bucketWidths[tf]
}

// Floor returns the start of the bucket containing t, in UTC.
// Unknown timeframes leave t untouched.
func (tf Timeframe) Floor(t time.Time) time.Time {
	w, ok := bucketWidths[tf]
	if !ok {
		return t
	}
	return t.UTC().Truncate(w)
}

