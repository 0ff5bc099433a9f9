package api

import (
	"github.com/labstack/echo/v4"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	"PairLab/internal/usecase"
	xhttp "PairLab/pkg/http"
	xlogger "PairLab/pkg/logger"
)

// AnalyticsEchoHandler serves pair analytics, stationarity tests, exports and bars.
type AnalyticsEchoHandler struct {
	logger *xlogger.Logger
	pa     *usecase.PairAnalytics
	mw     []echo.MiddlewareFunc
}

func NewAnalyticsEchoHandler(logger *xlogger.Logger, pa *usecase.PairAnalytics, mw ...echo.MiddlewareFunc) *AnalyticsEchoHandler {
	return &AnalyticsEchoHandler{logger: logger, pa: pa, mw: mw}
}

func (h *AnalyticsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/analytics", h.mw...)
	g.GET("/analyze", h.Analyze)
	g.POST("/adf-test", h.ADFTest)
	g.GET("/export", h.Export)
	g.GET("/bars", h.Bars)
}

func pairQuery(symbolX, symbolY, timeframe, startTime, endTime string) (usecase.PairQuery, error) {
	tr, err := xhttp.ParseTimeRange(startTime, endTime)
	if err != nil {
		return usecase.PairQuery{}, err
	}
	from, to := tr.Bounds()
	return usecase.PairQuery{
		SymbolX:   symbolX,
		SymbolY:   symbolY,
		Timeframe: domrepo.NormalizeTimeframe(timeframe),
		From:      from,
		To:        to,
	}, nil
}

func (h *AnalyticsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *AnalyticsEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := pairQuery(req.SymbolX, req.SymbolY, req.Timeframe, req.StartTime, req.EndTime)
	if err != nil {
		return h.fail(c, "analyze", err)
	}

	res, err := h.pa.Analyze(c.Request().Context(), q, req.Window, req.Rolling == "window")
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) ADFTest(c echo.Context) error {
	req := &models.ADFRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := pairQuery(req.SymbolX, req.SymbolY, req.Timeframe, req.StartTime, req.EndTime)
	if err != nil {
		return h.fail(c, "adf", err)
	}

	res, err := h.pa.ADF(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, "adf", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyticsEchoHandler) Export(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := pairQuery(req.SymbolX, req.SymbolY, req.Timeframe, req.StartTime, req.EndTime)
	if err != nil {
		return h.fail(c, "export", err)
	}

	out, err := h.pa.Export(c.Request().Context(), q, req.Format)
	if err != nil {
		return h.fail(c, "export", err)
	}
	return xhttp.AttachmentResponse(c, out.Filename, out.ContentType, out.Body)
}

func (h *AnalyticsEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tr, err := xhttp.ParseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return h.fail(c, "bars", err)
	}
	from, to := tr.Bounds()

	bars, err := h.pa.Bars(c.Request().Context(), req.Symbol, domrepo.NormalizeTimeframe(req.Timeframe), from, to)
	if err != nil {
		return h.fail(c, "bars", err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}
