package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairLab/internal/domain/models"
	"PairLab/internal/handler/ws"
	mid "PairLab/internal/middleware"
	"PairLab/internal/repository"
	"PairLab/internal/service/ratelimit"
	"PairLab/pkg/config"
	xhttp "PairLab/pkg/http"
)

type nopMetrics struct{}

func (nopMetrics) RecordTicksStored(string, string, int) {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLastPrice(string, float64)       {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordBufferDepth(int)                 {}

func TestRunDrainsBufferAndClosesResources(t *testing.T) {
	cfg := config.Default()
	store := repository.NewMemoryTickStore()
	buffer := mid.NewTickBuffer(store, nopMetrics{}, mid.WithFlushInterval(time.Hour))
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))

	closed := make(chan string, 1)
	app := New(cfg, nil, srv, ws.NewHub(nil), buffer,
		Components{Limiter: ratelimit.New(10, 10)},
		Resource{Name: "store", Close: func() error {
			closed <- "store"
			return store.Close()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return buffer.Enqueue(&models.Tick{Symbol: "BTCUSDT", Time: time.Unix(1700000000, 0).UTC(), Price: 1}) == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, "store", <-closed)

	ticks, err := store.Query(context.Background(), "BTCUSDT", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, ticks, 1)
	assert.Error(t, buffer.Enqueue(&models.Tick{Symbol: "BTCUSDT", Time: time.Now(), Price: 1}))
}
