package repository

import (
	"context"
	"errors"
	"time"

	"PairLab/internal/domain/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTick is returned when a tick fails validation.
	ErrInvalidTick = errors.New("invalid tick")
)

// MarketStream is a live source of exchange trades.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher ships ticks to the transport topic.
type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// TickStore is the append-only, time-indexed tick store.
type TickStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	// Query returns ticks for symbol ordered by time ascending.
	// A zero from or to leaves that side of the range open.
	Query(ctx context.Context, symbol string, from, to time.Time) ([]models.Tick, error)
	Stats(ctx context.Context) ([]models.SymbolStats, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertRepository persists alert rules.
type AlertRepository interface {
	Save(ctx context.Context, a *models.Alert) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.Alert, error)
}

// Broadcaster pushes live messages to connected clients.
type Broadcaster interface {
	Broadcast(msg models.LiveMessage)
}

type Metrics interface {
	RecordTicksStored(backend, symbol string, n int)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBufferDepth(n int)
}
