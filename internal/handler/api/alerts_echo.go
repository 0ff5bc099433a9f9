package api

import (
	"github.com/labstack/echo/v4"

	"PairLab/internal/domain/models"
	svcalert "PairLab/internal/service/alert"
	xhttp "PairLab/pkg/http"
	xlogger "PairLab/pkg/logger"
)

// AlertsEchoHandler manages z-score alert rules.
type AlertsEchoHandler struct {
	logger *xlogger.Logger
	alerts *svcalert.Service
	mw     []echo.MiddlewareFunc
}

func NewAlertsEchoHandler(logger *xlogger.Logger, alerts *svcalert.Service, mw ...echo.MiddlewareFunc) *AlertsEchoHandler {
	return &AlertsEchoHandler{logger: logger, alerts: alerts, mw: mw}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts", h.mw...)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
}

func (h *AlertsEchoHandler) List(c echo.Context) error {
	list := h.alerts.List()
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *AlertsEchoHandler) Create(c echo.Context) error {
	req := &models.CreateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.alerts.Add(c.Request().Context(), svcalert.NewAlert{
		SymbolX:   req.SymbolX,
		SymbolY:   req.SymbolY,
		Metric:    req.Metric,
		Operator:  req.Operator,
		Threshold: *req.Threshold,
		Message:   req.Message,
	})
	if err != nil {
		h.logger.Error("create alert failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, a)
}

func (h *AlertsEchoHandler) Delete(c echo.Context) error {
	req := &models.DeleteAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.alerts.Remove(c.Request().Context(), req.ID); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": svcalert.RemovedMessage})
}
