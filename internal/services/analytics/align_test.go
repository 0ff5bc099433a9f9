package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairLab/internal/domain/models"
)

func barsAt(minutes []int, closeBase float64) []models.Bar {
	bars := make([]models.Bar, len(minutes))
	for i, m := range minutes {
		c := closeBase + float64(i)
		bars[i] = models.Bar{
			BucketStart: base.Add(time.Duration(m) * time.Minute),
			Open:        c, High: c, Low: c, Close: c, Count: 1,
		}
	}
	return bars
}

func TestAlignDisjoint(t *testing.T) {
	x := barsAt([]int{0, 2, 4}, 10)
	y := barsAt([]int{1, 3, 5}, 20)

	got := Align(x, y)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAlignIdentical(t *testing.T) {
	x := barsAt([]int{0, 1, 2, 3}, 10)
	y := barsAt([]int{0, 1, 2, 3}, 20)

	got := Align(x, y)
	require.Len(t, got, 4)
	for i, p := range got {
		assert.True(t, p.Time.Equal(y[i].BucketStart))
		assert.Equal(t, x[i].Close, p.CloseX)
		assert.Equal(t, y[i].Close, p.CloseY)
	}
}

func TestAlignPartialOverlap(t *testing.T) {
	x := barsAt([]int{0, 1, 2, 5}, 10)
	y := barsAt([]int{1, 2, 3, 5, 6}, 20)

	got := Align(x, y)
	require.Len(t, got, 3)
	assert.LessOrEqual(t, len(got), len(x))

	assert.Equal(t, 11.0, got[0].CloseX)
	assert.Equal(t, 20.0, got[0].CloseY)
	assert.Equal(t, 13.0, got[2].CloseX)
	assert.Equal(t, 23.0, got[2].CloseY)
}

func TestAlignMatchesAcrossLocations(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	x := []models.Bar{{BucketStart: base.In(loc), Close: 1, Count: 1}}
	y := []models.Bar{{BucketStart: base, Close: 2, Count: 1}}

	got := Align(x, y)
	require.Len(t, got, 1)
}
