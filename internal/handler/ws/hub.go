package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	applogger "PairLab/pkg/logger"
)

// Hub fans live messages out to every connected client.
type Hub struct {
	log        *applogger.Logger
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	clients    map[*Client]struct{}
	count      atomic.Int64
}

// NewHub creates a hub; call Run to start it.
func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		log:        l.With(applogger.String("component", "ws_hub")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

var _ domrepo.Broadcaster = (*Hub)(nil)

// Run serves register, unregister and broadcast until ctx is done. It must be
// called once; afterwards join fails and leave returns immediately.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.log.Debug("client connected", applogger.String("client_id", c.id))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.log.Debug("client disconnected", applogger.String("client_id", c.id))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("slow client dropped", applogger.String("client_id", c.id))
					h.drop(c)
				}
			}
		}
	}
}

// join registers c. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Broadcast queues msg for every client. It never blocks; a full queue drops msg.
func (h *Hub) Broadcast(msg models.LiveMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode live message", applogger.String("type", msg.Type), applogger.Error(err))
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn("broadcast queue full", applogger.String("type", msg.Type))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}
