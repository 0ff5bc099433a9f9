package analytics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomWalk(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + r.NormFloat64()
	}
	return out
}

func ar1(seed int64, n int, phi float64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + r.NormFloat64()
	}
	return out
}

func TestStationarityShortSeries(t *testing.T) {
	res := TestStationarity(randomWalk(1, 10))
	assert.Nil(t, res.TestStatistic)
	assert.False(t, res.IsStationary)
	assert.Equal(t, [3]float64{-2.57, -2.86, -3.43}, res.CriticalValues)
}

func TestStationarityRandomWalk(t *testing.T) {
	res := TestStationarity(randomWalk(42, 200))
	require.NotNil(t, res.TestStatistic)
	assert.Greater(t, *res.TestStatistic, -2.86)
	assert.False(t, res.IsStationary)
}

func TestStationarityMeanReverting(t *testing.T) {
	res := TestStationarity(ar1(42, 200, 0.5))
	require.NotNil(t, res.TestStatistic)
	assert.Less(t, *res.TestStatistic, -2.86)
	assert.True(t, res.IsStationary)
}

func TestStationarityConstantSeries(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 7
	}
	res := TestStationarity(series)
	assert.Nil(t, res.TestStatistic)
	assert.False(t, res.IsStationary)
}

func TestStationarityFlatFractionalSeries(t *testing.T) {
	for _, c := range []float64{0.1, 0.3, 27345.61} {
		series := make([]float64, 30)
		for i := range series {
			series[i] = c
		}
		res := TestStationarity(series)
		assert.Nil(t, res.TestStatistic, "c=%v", c)
		assert.False(t, res.IsStationary, "c=%v", c)
	}
}

func TestCheckHistory(t *testing.T) {
	assert.ErrorIs(t, checkHistory(MinADFSamples-1), ErrInsufficientHistory)
	assert.NoError(t, checkHistory(MinADFSamples))
}

func TestStationarityBoundaryLength(t *testing.T) {
	res := TestStationarity(ar1(7, MinADFSamples, 0.2))
	assert.NotNil(t, res.TestStatistic)
}
