package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	applogger "PairLab/pkg/logger"
)

// TickQueue accepts ticks for batched storage.
type TickQueue interface {
	Enqueue(t *models.Tick) error
}

// TickProcessor validates ticks and routes them to the configured backend.
type TickProcessor struct {
	pub     domrepo.Publisher
	queue   TickQueue
	hub     domrepo.Broadcaster
	metrics domrepo.Metrics
	backend string
	log     *applogger.Logger
}

// NewTickProcessor creates a processor. With backend "kafka" ticks go to pub,
// otherwise to queue. hub may be nil.
func NewTickProcessor(
	pub domrepo.Publisher,
	queue TickQueue,
	hub domrepo.Broadcaster,
	metrics domrepo.Metrics,
	backend string,
	l *applogger.Logger,
) *TickProcessor {
	if l == nil {
		l = applogger.Nop()
	}
	return &TickProcessor{
		pub:     pub,
		queue:   queue,
		hub:     hub,
		metrics: metrics,
		backend: backend,
		log:     l.With(applogger.String("component", "tick_processor")),
	}
}

// NormalizeTick upper-cases the symbol and rejects ticks that cannot be stored.
func NormalizeTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("%w: nil tick", domrepo.ErrInvalidTick)
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	switch {
	case t.Symbol == "":
		return fmt.Errorf("%w: empty symbol", domrepo.ErrInvalidTick)
	case t.Time.IsZero():
		return fmt.Errorf("%w: missing time for %s", domrepo.ErrInvalidTick, t.Symbol)
	case math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price < 0:
		return fmt.Errorf("%w: price %v for %s", domrepo.ErrInvalidTick, t.Price, t.Symbol)
	case math.IsNaN(t.Size) || math.IsInf(t.Size, 0) || t.Size < 0:
		return fmt.Errorf("%w: size %v for %s", domrepo.ErrInvalidTick, t.Size, t.Symbol)
	}
	t.Time = t.Time.UTC()
	return nil
}

// Ingest validates t, routes it and broadcasts it as a live tick.
func (p *TickProcessor) Ingest(ctx context.Context, t *models.Tick) error {
	if err := NormalizeTick(t); err != nil {
		p.metrics.RecordError("invalid_tick")
		return err
	}

	start := time.Now()
	var err error
	switch {
	case p.backend == "kafka" && p.pub != nil:
		err = p.pub.Publish(ctx, t)
	case p.queue != nil:
		err = p.queue.Enqueue(t)
	default:
		err = fmt.Errorf("no route for backend %q", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("ingest")
		return fmt.Errorf("ingest %s: %w", t.Symbol, err)
	}
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	p.metrics.RecordLastPrice(t.Symbol, t.Price)

	if p.hub != nil {
		p.hub.Broadcast(models.LiveMessage{Type: models.MessageLiveTick, Data: t})
	}
	return nil
}
