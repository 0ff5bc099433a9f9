package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"PairLab/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that retrying cannot fix, such as a
// malformed payload. Such messages skip retries and are committed when no
// DLQ is configured.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Messages of one partition are handled one at a time.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	hook     ConsumerHook
	dlq      *kafka.Writer

	msgChan   chan *message
	stop      chan struct{}
	readersWG sync.WaitGroup
	workersWG sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	partLocks sync.Map
}

type message struct {
	topic string
	km    kafka.Message
}

type partitionKey struct {
	topic     string
	partition int
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: brokers are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	c := &Consumer{
		cfg:      cfg,
		log:      log.With(logger.String("component", "kafka_consumer"), logger.String("group", cfg.GroupID)),
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     NoopHook{},
		msgChan:  make(chan *message, cfg.BufferSize),
		stop:     make(chan struct{}),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	initMetrics()
	return c, nil
}

// RegisterHandler registers a handler for its topic. Must be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) error {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		return fmt.Errorf("kafka consumer: handler already registered for topic %s", topic)
	}
	c.handlers[topic] = handler
	return nil
}

// SetHook installs lifecycle hooks. Must be called before Start.
func (c *Consumer) SetHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start creates one reader per topic and launches the worker pool.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	c.startOnce.Do(func() {
		for topic := range c.handlers {
			c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
				Brokers:     c.cfg.Brokers,
				Topic:       topic,
				GroupID:     c.cfg.GroupID,
				StartOffset: c.cfg.StartOffset,
				MinBytes:    c.cfg.MinBytes,
				MaxBytes:    c.cfg.MaxBytes,
			})
		}
		for i := 0; i < c.cfg.WorkerCount; i++ {
			c.workersWG.Add(1)
			go c.worker()
		}
		for topic, reader := range c.readers {
			c.readersWG.Add(1)
			go c.read(ctx, topic, reader)
		}
		c.log.Info("kafka consumer started",
			logger.Int("topics", len(c.readers)),
			logger.Int("workers", c.cfg.WorkerCount))
	})
	return nil
}

// Stop halts reading, lets workers finish queued messages and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stop)
		c.readersWG.Wait()
		close(c.msgChan)
		stopErr = waitGroup(ctx, &c.workersWG)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("close reader", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("close dlq writer", logger.Error(err))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer workers: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (c *Consumer) read(ctx context.Context, topic string, reader *kafka.Reader) {
	defer c.readersWG.Done()

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-rctx.Done():
		}
	}()

	for {
		km, err := reader.FetchMessage(rctx)
		if err != nil {
			if rctx.Err() != nil {
				return
			}
			c.log.Warn("fetch message", logger.String("topic", topic), logger.Error(err))
			if !sleepOrStop(rctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}
		select {
		case c.msgChan <- &message{topic: topic, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-rctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workersWG.Done()
	for msg := range c.msgChan {
		c.process(msg)
	}
}

func (c *Consumer) process(msg *message) {
	handler, ok := c.handlers[msg.topic]
	if !ok {
		return
	}
	start := time.Now()
	log := c.log.With(
		logger.String("topic", msg.topic),
		logger.Int("partition", msg.km.Partition),
		logger.Int64("offset", msg.km.Offset))

	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	err := c.handleWithRetry(handler, msg)
	observeHandled(msg.topic, time.Since(start), err)

	if err != nil {
		c.hook.OnError(context.Background(), msg.topic, msg.km, msg.km.Value, err)
		log.Error("message handling failed", logger.Int("retries", c.cfg.RetryMax), logger.Error(err))
		if c.dlq == nil && !IsPermanent(err) {
			// Offset stays uncommitted so the message is redelivered after a rebalance.
			return
		}
		if c.dlq == nil {
			log.Warn("dropping malformed message")
		} else if dlqErr := c.toDLQ(msg); dlqErr != nil {
			log.Error("dlq write failed", logger.String("dlq", c.cfg.DLQTopic), logger.Error(dlqErr))
			return
		}
	}

	if reader := c.readers[msg.topic]; reader != nil {
		if cerr := commitWithRetry(reader, msg.km, 3); cerr != nil {
			log.Error("commit failed", logger.Error(cerr))
		}
	}
}

func (c *Consumer) handleWithRetry(handler MessageHandler, msg *message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.handleOnce(handler, msg)
		if err == nil || IsPermanent(err) || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stop:
			return err
		}
	}
}

func (c *Consumer) handleOnce(handler MessageHandler, msg *message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	ctx, km, data, err := c.hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.km.Value)
	if err != nil {
		return err
	}
	err = handler.Handle(ctx, data)
	c.hook.AfterHandle(ctx, msg.topic, km, data, err)
	return err
}

func (c *Consumer) toDLQ(msg *message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.km.Key,
		Value: msg.km.Value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.topic)},
		},
	})
	if err == nil {
		consumerDLQTotal.WithLabelValues(msg.topic).Inc()
	}
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	l, _ := c.partLocks.LoadOrStore(partitionKey{topic: topic, partition: partition}, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func commitWithRetry(reader *kafka.Reader, km kafka.Message, max int) error {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	return err
}

func sleepOrStop(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// backoffWithJitter doubles min per attempt, caps at max and subtracts up to half as jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}
