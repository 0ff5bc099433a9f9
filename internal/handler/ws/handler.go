package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PairLab/internal/domain/models"
	applogger "PairLab/pkg/logger"
)

// TickIngester accepts ticks sent by websocket clients.
type TickIngester interface {
	Ingest(ctx context.Context, t *models.Tick) error
}

// Handler upgrades /ws requests and attaches them to the hub.
type Handler struct {
	hub      *Hub
	ingest   TickIngester
	log      *applogger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, ingest TickIngester, l *applogger.Logger) *Handler {
	if l == nil {
		l = applogger.Nop()
	}
	return &Handler{
		hub:    hub,
		ingest: ingest,
		log:    l.With(applogger.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the connection and starts the client pumps.
func (h *Handler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	id := uuid.NewString()
	client := &Client{
		id:     id,
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		ingest: h.ingest,
		log:    h.log.With(applogger.String("client_id", id)),
	}
	if !h.hub.join(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}
	go client.writePump()
	go client.readPump()
	return nil
}
