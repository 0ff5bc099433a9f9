package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWithJitter(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
		attempt  int
		lo, hi   time.Duration
	}{
		{"first attempt", 100 * time.Millisecond, time.Second, 1, 50 * time.Millisecond, 100 * time.Millisecond},
		{"third attempt", 100 * time.Millisecond, time.Second, 3, 200 * time.Millisecond, 400 * time.Millisecond},
		{"capped", 100 * time.Millisecond, time.Second, 10, 500 * time.Millisecond, time.Second},
		{"huge attempt", 100 * time.Millisecond, time.Second, 80, 500 * time.Millisecond, time.Second},
		{"zero min", 0, 0, 1, 25 * time.Millisecond, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				d := backoffWithJitter(tt.min, tt.max, tt.attempt)
				assert.GreaterOrEqual(t, d, tt.lo)
				assert.LessOrEqual(t, d, tt.hi)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Gzip, parseCompression(""))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue("text")
	require.NoError(t, err)
	assert.Equal(t, "text", string(b))

	b, err = encodeValue(map[string]float64{"price": 1.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":1.5}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}

func TestConstructorsRequireBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
	_, err = NewConsumer()
	assert.Error(t, err)
}

type topicHandler string

func (h topicHandler) Topic() string                         { return string(h) }
func (h topicHandler) Handle(context.Context, []byte) error { return nil }

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	require.NoError(t, c.RegisterHandler(topicHandler("ticks")))
	assert.Error(t, c.RegisterHandler(topicHandler("ticks")))
}

func TestStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
}

func TestConsumerOptions(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"b:9092"}),
		WithConsumerGroupID("g1"),
		WithConsumerStartOffset("latest"),
		WithConsumerWorkers(4),
		WithConsumerRetry(5, 10*time.Millisecond, 0),
		WithConsumerBufferSize(0),
	)
	require.NoError(t, err)
	assert.Equal(t, "g1", c.cfg.GroupID)
	assert.Equal(t, LastOffset, c.cfg.StartOffset)
	assert.Equal(t, 4, c.cfg.WorkerCount)
	assert.Equal(t, 5, c.cfg.RetryMax)
	assert.Equal(t, 10*time.Millisecond, c.cfg.BackoffMin)
	assert.Equal(t, 2*time.Second, c.cfg.BackoffMax)
	assert.Equal(t, 64, cap(c.msgChan))
}

func TestHookChainOrder(t *testing.T) {
	var calls []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				calls = append(calls, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))

	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)

	assert.Equal(t, "xab", string(data))
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestHookChainRecoversPanics(t *testing.T) {
	chain := NewHookChain(
		HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		}},
		HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { panic("again") }},
	)
	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	var hookErr *HookError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
	assert.Equal(t, "x", string(data))

	assert.NotPanics(t, func() {
		chain.OnError(context.Background(), "t", kafka.Message{}, nil, err)
	})
}

func TestHandleOnceRecoversHandlerPanic(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	err = c.handleOnce(panicHandler{}, &message{topic: "t", km: kafka.Message{Value: []byte("{}")}})
	assert.ErrorContains(t, err, "handler panic")
}

type panicHandler struct{}

func (panicHandler) Topic() string                         { return "t" }
func (panicHandler) Handle(context.Context, []byte) error { panic("bad payload") }

type countingHandler struct {
	calls int
	err   error
}

func (h *countingHandler) Topic() string { return "t" }
func (h *countingHandler) Handle(context.Context, []byte) error {
	h.calls++
	return h.err
}

func TestHandleWithRetrySkipsPermanent(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(3, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	msg := &message{topic: "t", km: kafka.Message{Value: []byte("{}")}}

	h := &countingHandler{err: Permanent(errors.New("bad payload"))}
	err = c.handleWithRetry(h, msg)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, h.calls)

	h = &countingHandler{err: errors.New("buffer full")}
	err = c.handleWithRetry(h, msg)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 4, h.calls)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(nil))
}
