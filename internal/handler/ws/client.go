package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"PairLab/internal/domain/models"
	applogger "PairLab/pkg/logger"
	xutil "PairLab/pkg/util"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection registered with the hub.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ingest TickIngester
	log    *applogger.Logger
}

// inbound is a client message. Ts may be an ISO string or epoch seconds/milliseconds.
type inbound struct {
	Type   string      `json:"type"`
	Ts     interface{} `json:"ts"`
	Symbol string      `json:"symbol"`
	Price  float64     `json:"price"`
	Size   float64     `json:"size"`
}

func (m inbound) tick() (*models.Tick, error) {
	var (
		ts time.Time
		ok bool
	)
	switch v := m.Ts.(type) {
	case string:
		ts, ok = xutil.ParseTime(v)
	case float64:
		ts, ok = xutil.FromEpoch(v)
	}
	if !ok {
		return nil, fmt.Errorf("invalid ts %v", m.Ts)
	}
	return &models.Tick{Symbol: strings.ToUpper(strings.TrimSpace(m.Symbol)), Time: ts, Price: m.Price, Size: m.Size}, nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", applogger.Error(err))
			}
			return
		}
		c.handle(b)
	}
}

func (c *Client) handle(b []byte) {
	var m inbound
	if err := json.Unmarshal(b, &m); err != nil {
		c.log.Debug("ignore malformed message", applogger.Error(err))
		return
	}
	if m.Type != "tick" || c.ingest == nil {
		return
	}
	t, err := m.tick()
	if err != nil {
		c.log.Debug("ignore client tick", applogger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.ingest.Ingest(ctx, t); err != nil {
		c.log.Warn("client tick rejected", applogger.String("symbol", t.Symbol), applogger.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
