package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingCorrelation(t *testing.T) {
	tests := []struct {
		name   string
		x, y   []float64
		window int
		want   []float64
	}{
		{
			name:   "perfectly linked",
			x:      []float64{1, 2, 3, 4},
			y:      []float64{3, 5, 7, 9},
			window: 2,
			want:   []float64{0, 1, 1, 1},
		},
		{
			name:   "flat window",
			x:      []float64{1, 2, 3, 4},
			y:      []float64{5, 5, 5, 6},
			window: 2,
			want:   []float64{0, 0, 0, 1},
		},
		{
			name:   "flat fractional window",
			x:      []float64{0.3, 0.3, 0.3, 0.3},
			y:      []float64{1, 2, 3, 4},
			window: 3,
			want:   []float64{0, 0, 0, 0},
		},
		{
			name:   "window below one",
			x:      []float64{1, 2, 3},
			y:      []float64{3, 2, 1},
			window: 0,
			want:   []float64{0, 0, 0},
		},
		{
			name:   "sign flip",
			x:      []float64{1, 2, 3, 4, 5},
			y:      []float64{1, 2, 3, 2, 1},
			window: 3,
			want:   []float64{0, 1, 1, 0, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingCorrelation(tt.x, tt.y, tt.window)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "index %d", i)
			}
		})
	}
}

func TestHalfLife(t *testing.T) {
	// s_t = 0.5 * s_{t-1} gives lambda = -0.5.
	spread := []float64{16, 8, 4, 2, 1, 0.5}
	lambda, ok := MeanReversionSpeed(spread)
	assert.True(t, ok)
	assert.InDelta(t, -0.5, lambda, 1e-9)

	hl, ok := HalfLife(spread)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, hl, 1e-9)
}

func TestHalfLifeUndefined(t *testing.T) {
	tests := []struct {
		name   string
		spread []float64
	}{
		{"too short", []float64{1, 2}},
		{"trending", []float64{1, 2, 4, 8, 16}},
		{"constant", []float64{3, 3, 3, 3}},
		{"constant fraction", []float64{0.1, 0.1, 0.1, 0.1, 0.1}},
		{"overshooting", []float64{1, -1.5, 2.25, -3.375, 5.0625}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := HalfLife(tt.spread)
			assert.False(t, ok)
		})
	}
}
