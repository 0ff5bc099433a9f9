package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
)

// MemoryTickStore keeps ticks per symbol in time order.
type MemoryTickStore struct {
	mu    sync.RWMutex
	ticks map[string][]models.Tick
}

func NewMemoryTickStore() *MemoryTickStore {
	return &MemoryTickStore{ticks: make(map[string][]models.Tick)}
}

var _ domrepo.TickStore = (*MemoryTickStore)(nil)

func (s *MemoryTickStore) Init(context.Context) error { return nil }

func (s *MemoryTickStore) StoreBatch(_ context.Context, ticks []*models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := make(map[string]bool)
	for _, t := range ticks {
		if t == nil {
			continue
		}
		series := s.ticks[t.Symbol]
		if n := len(series); n > 0 && t.Time.Before(series[n-1].Time) {
			touched[t.Symbol] = true
		}
		s.ticks[t.Symbol] = append(series, *t)
	}
	for sym := range touched {
		series := s.ticks[sym]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	}
	return nil
}

func (s *MemoryTickStore) Query(_ context.Context, symbol string, from, to time.Time) ([]models.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.ticks[symbol]

	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(from) })
	}
	hi := len(series)
	if !to.IsZero() {
		hi = sort.Search(len(series), func(i int) bool { return series[i].Time.After(to) })
	}
	if lo >= hi {
		return []models.Tick{}, nil
	}
	out := make([]models.Tick, hi-lo)
	copy(out, series[lo:hi])
	return out, nil
}

func (s *MemoryTickStore) Stats(context.Context) ([]models.SymbolStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SymbolStats, 0, len(s.ticks))
	for sym, series := range s.ticks {
		if len(series) == 0 {
			continue
		}
		out = append(out, models.SymbolStats{
			Symbol:    sym,
			Count:     int64(len(series)),
			FirstTick: series[0].Time,
			LastTick:  series[len(series)-1].Time,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemoryTickStore) Health(context.Context) error { return nil }

func (s *MemoryTickStore) Close() error { return nil }
