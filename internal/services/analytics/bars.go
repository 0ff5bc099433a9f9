package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
)

// AggregateTicks buckets ticks into OHLCV bars at the given timeframe.
// Ticks are stable-sorted by time first, so ties keep arrival order.
// Bars are returned in ascending bucket order; empty buckets are absent.
func AggregateTicks(ticks []models.Tick, tf domrepo.Timeframe) ([]models.Bar, error) {
	if len(ticks) == 0 {
		return nil, nil
	}

	ordered := make([]models.Tick, len(ticks))
	copy(ordered, ticks)
	for i := range ordered {
		if ordered[i].Time.IsZero() {
			return nil, fmt.Errorf("%w: tick %d of %s", ErrInvalidTimestamp, i, ordered[i].Symbol)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time.Before(ordered[j].Time)
	})

	index := make(map[int64]int)
	bars := make([]models.Bar, 0)
	for _, t := range ordered {
		start := tf.Floor(t.Time)
		key := BucketKey(start)

		i, ok := index[key]
		if !ok {
			index[key] = len(bars)
			bars = append(bars, models.Bar{
				BucketStart: start,
				Open:        t.Price,
				High:        t.Price,
				Low:         t.Price,
				Close:       t.Price,
				Volume:      t.Size,
				Count:       1,
			})
			continue
		}

		b := &bars[i]
		b.High = math.Max(b.High, t.Price)
		b.Low = math.Min(b.Low, t.Price)
		b.Close = t.Price
		b.Volume += t.Size
		b.Count++
	}
	return bars, nil
}

// BucketKey is the canonical identity of a bar's bucket.
func BucketKey(t time.Time) int64 {
	return t.UnixMilli()
}
