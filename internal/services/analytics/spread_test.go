package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpreadIgnoresIntercept(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{12, 14, 16}

	got := Spread(x, y, 2)
	assert.Equal(t, []float64{10, 10, 10}, got)
}

func TestRollingStatsGrowingWindow(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	means, stds := RollingStats(series, 3)

	wantMeans := []float64{1, 1.5, 2, 3, 4}
	wantStds := []float64{0, 0.5, math.Sqrt(2.0 / 3.0), math.Sqrt(2.0 / 3.0), math.Sqrt(2.0 / 3.0)}
	require.Len(t, means, len(series))
	for i := range series {
		assert.InDelta(t, wantMeans[i], means[i], 1e-12, "mean[%d]", i)
		assert.InDelta(t, wantStds[i], stds[i], 1e-12, "std[%d]", i)
	}
}

func TestRollingStatsWindowBelowOne(t *testing.T) {
	series := []float64{3, 7, 11}
	for _, w := range []int{0, -4, 1} {
		means, stds := RollingStats(series, w)
		assert.Equal(t, series, means)
		assert.Equal(t, []float64{0, 0, 0}, stds)
	}
}

func TestZScoreFlatWindow(t *testing.T) {
	series := []float64{4, 4, 4, 4, 4, 4}
	means, stds := RollingStats(series, 3)
	z := ZScore(series, means, stds)
	for i, v := range z {
		assert.Equal(t, 0.0, v, "z[%d]", i)
	}
}

func TestZScoreFlatFractionalWindow(t *testing.T) {
	series := repeat(0.1, 6)
	means, stds := RollingStats(series, 3)
	for i, v := range ZScore(series, means, stds) {
		assert.Equal(t, 0.0, stds[i], "std[%d]", i)
		assert.Zero(t, v, "z[%d]", i)
	}
}

func TestZScoreZeroStdCountsAsOne(t *testing.T) {
	z := ZScore([]float64{5, 9}, []float64{2, 1}, []float64{0, 2})
	assert.Equal(t, []float64{3, 4}, z)
}

func TestZScoreNeverLooksAhead(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6}
	means, stds := RollingStats(series, 4)
	before := ZScore(series, means, stds)

	extended := append(append([]float64{}, series...), 1000)
	m2, s2 := RollingStats(extended, 4)
	after := ZScore(extended, m2, s2)

	for i := range before {
		assert.Equal(t, before[i], after[i])
	}
}
