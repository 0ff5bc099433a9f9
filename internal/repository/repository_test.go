package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func tick(sym string, sec int, price float64) *models.Tick {
	return &models.Tick{Symbol: sym, Time: base.Add(time.Duration(sec) * time.Second), Price: price, Size: 1}
}

func TestMemoryTickStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTickStore()
	require.NoError(t, s.StoreBatch(ctx, []*models.Tick{
		tick("BTCUSDT", 0, 1), tick("BTCUSDT", 10, 2), tick("ETHUSDT", 5, 3), nil,
	}))
	// late arrival is placed in time order
	require.NoError(t, s.StoreBatch(ctx, []*models.Tick{tick("BTCUSDT", 5, 1.5)}))

	tests := []struct {
		name     string
		from, to time.Time
		want     []float64
	}{
		{"open range", time.Time{}, time.Time{}, []float64{1, 1.5, 2}},
		{"from only", base.Add(5 * time.Second), time.Time{}, []float64{1.5, 2}},
		{"to only", time.Time{}, base.Add(5 * time.Second), []float64{1, 1.5}},
		{"closed", base.Add(time.Second), base.Add(9 * time.Second), []float64{1.5}},
		{"empty", base.Add(20 * time.Second), time.Time{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, "BTCUSDT", tt.from, tt.to)
			require.NoError(t, err)
			prices := make([]float64, 0, len(got))
			for _, g := range got {
				prices = append(prices, g.Price)
			}
			if tt.want == nil {
				assert.Empty(t, prices)
				return
			}
			assert.Equal(t, tt.want, prices)
		})
	}

	none, err := s.Query(ctx, "SOLUSDT", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryTickStoreStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTickStore()
	require.NoError(t, s.StoreBatch(ctx, []*models.Tick{
		tick("ETHUSDT", 3, 1), tick("BTCUSDT", 0, 1), tick("BTCUSDT", 9, 1),
	}))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, models.SymbolStats{
		Symbol: "BTCUSDT", Count: 2, FirstTick: base, LastTick: base.Add(9 * time.Second),
	}, stats[0])
	assert.Equal(t, "ETHUSDT", stats[1].Symbol)
}

func TestTickQuery(t *testing.T) {
	q, args := tickQuery("db.ticks", "BTCUSDT", time.Time{}, time.Time{})
	assert.Equal(t, "SELECT symbol, ts, price, size FROM db.ticks WHERE symbol = ? ORDER BY ts ASC", q)
	assert.Equal(t, []interface{}{"BTCUSDT"}, args)

	to := base.Add(time.Hour)
	q, args = tickQuery("db.ticks", "BTCUSDT", base, to)
	assert.Contains(t, q, "AND ts >= ? AND ts <= ? ORDER BY ts ASC")
	assert.Equal(t, []interface{}{"BTCUSDT", base, to}, args)
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("pairlab")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "pairlab.ticks")
	assert.Contains(t, stmts[1], "ORDER BY (symbol, ts)")
}

func TestMemoryAlertRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryAlertRepository()
	require.NoError(t, r.Save(ctx, &models.Alert{ID: 2, SymbolX: "A"}))
	require.NoError(t, r.Save(ctx, &models.Alert{ID: 1, SymbolX: "B"}))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)

	require.NoError(t, r.Delete(ctx, 1))
	assert.ErrorIs(t, r.Delete(ctx, 1), domrepo.ErrNotFound)
}
