package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeFloor(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 17, 42, 987_000_000, time.UTC)

	tests := []struct {
		name string
		tf   Timeframe
		want time.Time
	}{
		{"1s truncates millis", TF1s, time.Date(2024, 3, 5, 10, 17, 42, 0, time.UTC)},
		{"1m truncates seconds", TF1m, time.Date(2024, 3, 5, 10, 17, 0, 0, time.UTC)},
		{"5m floors minutes", TF5m, time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)},
		{"unknown passes through", Timeframe("3h"), ts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.tf.Floor(ts)), "got %v", tt.tf.Floor(ts))
		})
	}
}

func TestTimeframeFloorNonUTCInput(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+30*60)
	ts := time.Date(2024, 3, 5, 10, 17, 42, 0, loc) // 04:47:42 UTC

	got := TF5m.Floor(ts)
	assert.True(t, time.Date(2024, 3, 5, 4, 45, 0, 0, time.UTC).Equal(got), "got %v", got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestNormalizeTimeframe(t *testing.T) {
	assert.Equal(t, TF1m, NormalizeTimeframe(""))
	assert.Equal(t, TF5m, NormalizeTimeframe("5m"))
	assert.Equal(t, TF1m, NormalizeTimeframe("bogus"))
	assert.True(t, IsValidTimeframe(TF1s))
	assert.False(t, IsValidTimeframe("2m"))
	assert.Equal(t, 5*time.Minute, TF5m.Width())
}
