package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	applogger "PairLab/pkg/logger"
)

// ErrBufferFull is returned by Enqueue when the buffer is at capacity.
var ErrBufferFull = errors.New("tick buffer full")

// Sink receives flushed batches. TickStore satisfies it.
type Sink interface {
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
}

// TickBuffer is a bounded FIFO between ingestion and the tick store.
// One goroutine flushes it, so at most one batch is in flight. A batch that
// fails is put back at the head to keep arrival order.
type TickBuffer struct {
	sink     Sink
	metrics  domrepo.Metrics
	log      *applogger.Logger
	backend  string
	capacity int
	batch    int
	interval time.Duration
	backoff  time.Duration

	mu      sync.Mutex
	queue   []*models.Tick
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

// BufferOption configures TickBuffer.
type BufferOption func(*TickBuffer)

// WithCapacity bounds the number of queued ticks.
func WithCapacity(n int) BufferOption {
	return func(b *TickBuffer) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithBatchSize sets how many ticks one flush sends.
func WithBatchSize(n int) BufferOption {
	return func(b *TickBuffer) {
		if n > 0 {
			b.batch = n
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) BufferOption {
	return func(b *TickBuffer) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithBackend labels stored-tick metrics.
func WithBackend(name string) BufferOption {
	return func(b *TickBuffer) {
		if name != "" {
			b.backend = name
		}
	}
}

// WithLogger sets the buffer logger.
func WithLogger(l *applogger.Logger) BufferOption {
	return func(b *TickBuffer) {
		if l != nil {
			b.log = l
		}
	}
}

// NewTickBuffer creates a buffer with batch 50, interval 1s and capacity 10000 unless overridden.
func NewTickBuffer(sink Sink, metrics domrepo.Metrics, opts ...BufferOption) *TickBuffer {
	b := &TickBuffer{
		sink:     sink,
		metrics:  metrics,
		log:      applogger.Nop(),
		backend:  "store",
		capacity: 10000,
		batch:    50,
		interval: time.Second,
		backoff:  50 * time.Millisecond,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.capacity < b.batch {
		b.capacity = b.batch
	}
	b.log = b.log.With(applogger.String("component", "tick_buffer"))
	return b
}

// Enqueue appends t or fails with ErrBufferFull.
func (b *TickBuffer) Enqueue(t *models.Tick) error {
	if t == nil {
		return nil
	}
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return fmt.Errorf("tick buffer stopped")
	}
	if len(b.queue) >= b.capacity {
		b.mu.Unlock()
		b.metrics.RecordError("buffer_full")
		return ErrBufferFull
	}
	b.queue = append(b.queue, t)
	n := len(b.queue)
	b.mu.Unlock()

	b.metrics.RecordBufferDepth(n)
	if n >= b.batch {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Len returns the number of queued ticks.
func (b *TickBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Start launches the flusher. Calling it twice is a no-op.
func (b *TickBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run(ctx)
	b.log.Info("tick buffer started",
		applogger.Int("capacity", b.capacity),
		applogger.Int("batch", b.batch),
		applogger.Duration("interval", b.interval))
}

// Stop rejects new ticks, drains what is queued and waits for the flusher.
func (b *TickBuffer) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	started := b.started
	b.mu.Unlock()

	if !started {
		return b.drain(ctx)
	}
	close(b.stop)
	select {
	case <-b.done:
	case <-ctx.Done():
		return fmt.Errorf("tick buffer stop: %w", ctx.Err())
	}
	if n := b.Len(); n > 0 {
		return fmt.Errorf("tick buffer stop: %d ticks not flushed", n)
	}
	return nil
}

func (b *TickBuffer) run(ctx context.Context) {
	defer close(b.done)
	t := time.NewTicker(b.interval)
	defer t.Stop()

	for {
		select {
		case <-b.stop:
			if err := b.drain(context.WithoutCancel(ctx)); err != nil {
				b.log.Error("final drain failed", applogger.Int("pending", b.Len()), applogger.Error(err))
			}
			return
		case <-t.C:
			b.flushAll(ctx)
		case <-b.wake:
			b.flushFull(ctx)
		}
	}
}

// flushFull sends full batches only; partial batches wait for the ticker.
func (b *TickBuffer) flushFull(ctx context.Context) {
	for b.Len() >= b.batch {
		if err := b.flushOnce(ctx); err != nil {
			b.pause()
			return
		}
	}
}

func (b *TickBuffer) flushAll(ctx context.Context) {
	for b.Len() > 0 {
		if err := b.flushOnce(ctx); err != nil {
			b.pause()
			return
		}
	}
}

func (b *TickBuffer) drain(ctx context.Context) error {
	for b.Len() > 0 {
		if err := b.flushOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *TickBuffer) pause() {
	select {
	case <-time.After(b.backoff):
	case <-b.stop:
	}
}

func (b *TickBuffer) flushOnce(ctx context.Context) error {
	b.mu.Lock()
	n := b.batch
	if n > len(b.queue) {
		n = len(b.queue)
	}
	if n == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := make([]*models.Tick, n)
	copy(batch, b.queue[:n])
	b.queue = b.queue[n:]
	b.mu.Unlock()

	start := time.Now()
	err := b.sink.StoreBatch(ctx, batch)
	if err != nil {
		b.mu.Lock()
		b.queue = append(batch, b.queue...)
		depth := len(b.queue)
		b.mu.Unlock()
		b.metrics.RecordError("buffer_flush")
		b.metrics.RecordBufferDepth(depth)
		b.log.Warn("flush failed, batch re-queued", applogger.Int("batch", n), applogger.Error(err))
		return err
	}

	b.metrics.RecordLatency("buffer_flush", time.Since(start).Seconds())
	b.metrics.RecordBufferDepth(b.Len())
	perSymbol := make(map[string]int)
	for _, t := range batch {
		perSymbol[t.Symbol]++
	}
	for sym, c := range perSymbol {
		b.metrics.RecordTicksStored(b.backend, sym, c)
	}
	return nil
}
