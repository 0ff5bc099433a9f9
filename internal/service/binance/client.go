package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PairLab/internal/domain/models"
	drepo "PairLab/internal/domain/repository"
	applogger "PairLab/pkg/logger"
)

// DefaultURL is the futures raw-stream endpoint.
const DefaultURL = "wss://fstream.binance.com/ws"

// Client implements MarketStream over the Binance <symbol>@trade streams.
type Client struct {
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	reqID     int64
}

// New creates a Binance MarketStream.
func New(url string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		url:            strings.TrimRight(url, "/"),
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            l.With(applogger.String("component", "binance")),
	}
}

var _ drepo.MarketStream = (*Client)(nil)

// Connect dials the stream endpoint.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("connected", applogger.String("url", c.url))
	return nil
}

// Subscribe requests <symbol>@trade for every configured symbol.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return errors.New("binance not connected")
	}
	c.reqID++
	req := subscribeRequest{Method: "SUBSCRIBE", Params: StreamNames(c.symbols), ID: c.reqID}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("binance subscribe: %w", err)
	}
	c.log.Info("subscribed", applogger.Strings("streams", req.Params))
	return nil
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// StreamNames maps symbols to lower-case trade stream names.
func StreamNames(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s)+"@trade")
		}
	}
	return out
}

type tradeEvent struct {
	Event     string `json:"e"`
	TradeTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
}

// ParseTrade decodes a trade frame. Non-trade frames return ok=false.
func ParseTrade(b []byte) (t *models.Tick, ok bool, err error) {
	var ev tradeEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, false, fmt.Errorf("decode frame: %w", err)
	}
	if ev.Event != "trade" {
		return nil, false, nil
	}
	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return nil, false, fmt.Errorf("price %q: %w", ev.Price, err)
	}
	qty, err := strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return nil, false, fmt.Errorf("quantity %q: %w", ev.Quantity, err)
	}
	return &models.Tick{
		Symbol: strings.ToUpper(ev.Symbol),
		Time:   time.UnixMilli(ev.TradeTime).UTC(),
		Price:  price,
		Size:   qty,
	}, true, nil
}

// Read streams ticks until ctx is done or the connection fails.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		errs <- errors.New("binance conn nil")
		close(ticks)
		close(errs)
		return ticks, errs
	}

	readCtx, cancel := context.WithCancel(ctx)
	go c.pingLoop(readCtx, conn)

	go func() {
		defer cancel()
		defer close(ticks)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if readCtx.Err() == nil {
					errs <- fmt.Errorf("binance read: %w", err)
				}
				return
			}
			t, ok, err := ParseTrade(b)
			if err != nil {
				c.log.Debug("skip frame", applogger.Error(err))
				continue
			}
			if !ok {
				continue
			}
			select {
			case ticks <- t:
			case <-readCtx.Done():
				return
			default:
				c.log.Warn("tick channel full, dropping", applogger.String("symbol", t.Symbol))
			}
		}
	}()

	go func() {
		<-readCtx.Done()
		if ctx.Err() != nil {
			_ = conn.Close()
		}
	}()

	return ticks, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				c.log.Warn("ping failed", applogger.Error(err))
			}
		}
	}
}

// Reconnect closes, waits reconnectDelay, dials again and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
