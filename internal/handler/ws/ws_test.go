package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairLab/internal/domain/models"
)

type captureIngester struct {
	mu    sync.Mutex
	ticks []*models.Tick
}

func (c *captureIngester) Ingest(_ context.Context, t *models.Tick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, t)
	return nil
}

func (c *captureIngester) got() []*models.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Tick(nil), c.ticks...)
}

func startServer(t *testing.T, ing TickIngester) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	e := echo.New()
	NewHandler(hub, ing, nil).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastReachesClients(t *testing.T) {
	hub, url := startServer(t, nil)
	a, b := dial(t, url), dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(models.LiveMessage{Type: models.MessageLiveTick, Data: map[string]float64{"price": 1}})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "liveTick", msg["type"])
	}
}

func TestClientTicksAreIngested(t *testing.T) {
	ing := &captureIngester{}
	_, url := startServer(t, ing)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "tick", "ts": "2024-01-01T00:00:00Z", "symbol": "btcusdt", "price": 42000.0, "size": 0.5,
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "tick", "ts": 1704067200000, "symbol": "ETHUSDT", "price": 2300.0,
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "heartbeat"}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "tick", "ts": "garbage", "symbol": "X"}))

	require.Eventually(t, func() bool { return len(ing.got()) == 2 }, time.Second, 5*time.Millisecond)
	got := ing.got()
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[0].Time)
	assert.Equal(t, "ETHUSDT", got[1].Symbol)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[1].Time)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startServer(t, nil)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastEncodesEnvelope(t *testing.T) {
	hub := NewHub(nil)
	z := 2.5
	hub.Broadcast(models.LiveMessage{Type: models.MessageAlert, Message: "zscore gt 2", CurrentValue: &z})
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(<-hub.broadcast, &msg))
	assert.Equal(t, "alert", msg["type"])
	assert.Equal(t, 2.5, msg["currentValue"])
	assert.NotContains(t, msg, "data")
}

func TestStoppedHubNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c := &Client{id: "late", send: make(chan []byte, 1)}
		assert.False(t, hub.join(c))
		hub.leave(c)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("join/leave blocked on a stopped hub")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	e := echo.New()
	NewHandler(hub, nil, nil).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, isTimeout(err), "connection should be closed, got %v", err)

	late := dial(t, url)
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "late client should be turned away, got %v", err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
