package api

import (
	"time"

	"github.com/labstack/echo/v4"

	domrepo "PairLab/internal/domain/repository"
	xhttp "PairLab/pkg/http"
	xlogger "PairLab/pkg/logger"
)

type healthStatus struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Store  string    `json:"store"`
}

// HealthHandler reports liveness and tick store health.
type HealthHandler struct {
	logger *xlogger.Logger
	store  domrepo.TickStore
}

func NewHealthHandler(logger *xlogger.Logger, store domrepo.TickStore) *HealthHandler {
	return &HealthHandler{logger: logger, store: store}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	res := healthStatus{Status: "ok", Time: time.Now().UTC(), Store: "up"}
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Warn("tick store unhealthy", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("Tick store unavailable").
			WithCode("ERR_STORE_DOWN").
			WithParams(map[string]interface{}{"status": "degraded", "store": "down"}).
			WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
