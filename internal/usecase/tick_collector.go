package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	applogger "PairLab/pkg/logger"
)

// TickCollector pumps an exchange stream into the processor.
type TickCollector struct {
	stream         domrepo.MarketStream
	proc           *TickProcessor
	metrics        domrepo.Metrics
	reconnectDelay time.Duration
	log            *applogger.Logger
	wg             sync.WaitGroup
}

func NewTickCollector(stream domrepo.MarketStream, proc *TickProcessor, metrics domrepo.Metrics, reconnectDelay time.Duration, l *applogger.Logger) *TickCollector {
	if l == nil {
		l = applogger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &TickCollector{
		stream:         stream,
		proc:           proc,
		metrics:        metrics,
		reconnectDelay: reconnectDelay,
		log:            l.With(applogger.String("component", "tick_collector")),
	}
}

// IsConnected reports whether the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes and consumes in the background until ctx is done.
func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.wg.Add(1)
	go c.run(ctx)
	c.log.Info("tick collector started")
	return nil
}

func (c *TickCollector) run(ctx context.Context) {
	defer c.wg.Done()
	for {
		ticks, errs := c.stream.Read(ctx)
		err := c.consume(ctx, ticks, errs)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		c.log.Warn("market stream interrupted, reconnecting", applogger.Error(err))
		for {
			if err := c.stream.Reconnect(ctx); err == nil {
				break
			} else {
				c.log.Error("reconnect failed", applogger.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectDelay):
			}
		}
	}
}

// consume returns when the stream fails or its channels close.
func (c *TickCollector) consume(ctx context.Context, ticks <-chan *models.Tick, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return err
		case t, ok := <-ticks:
			if !ok {
				return errors.New("market stream closed")
			}
			if err := c.proc.Ingest(ctx, t); err != nil {
				c.log.Warn("drop exchange tick", applogger.Error(err))
			}
		}
	}
}

// Stop closes the stream and waits for the consumer loop.
func (c *TickCollector) Stop() error {
	err := c.stream.Close()
	c.wg.Wait()
	c.log.Info("tick collector stopped")
	return err
}
