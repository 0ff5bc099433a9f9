package api

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"PairLab/internal/usecase"
	xhttp "PairLab/pkg/http"
	xlogger "PairLab/pkg/logger"
)

// CacheInvalidator drops cached analyses after new ticks land.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// UploadEchoHandler accepts NDJSON tick files and reports store contents.
type UploadEchoHandler struct {
	logger     *xlogger.Logger
	uploader   *usecase.TickUploader
	invalidate CacheInvalidator
	mw         []echo.MiddlewareFunc
}

func NewUploadEchoHandler(logger *xlogger.Logger, uploader *usecase.TickUploader, invalidate CacheInvalidator, mw ...echo.MiddlewareFunc) *UploadEchoHandler {
	return &UploadEchoHandler{logger: logger, uploader: uploader, invalidate: invalidate, mw: mw}
}

func (h *UploadEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/upload", h.mw...)
	g.POST("/upload", h.Upload)
	g.GET("/stats", h.Stats)
}

func (h *UploadEchoHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("No file uploaded").WithParam("field", "file"))
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".ndjson", ".json":
	default:
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("Only NDJSON or JSON files are allowed").WithParam("field", "file"))
	}
	f, err := fh.Open()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("Cannot read uploaded file").WithError(err))
	}
	defer f.Close()

	ctx := c.Request().Context()
	res, err := h.uploader.Upload(ctx, f)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("upload failed", xlogger.String("file", fh.Filename), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	if h.invalidate != nil {
		if err := h.invalidate.Invalidate(ctx); err != nil {
			h.logger.Warn("analysis cache invalidation failed", xlogger.Error(err))
		}
	}
	h.logger.Info("ticks uploaded", xlogger.String("file", fh.Filename), xlogger.Int("count", res.Count))
	return xhttp.SuccessResponse(c, res)
}

func (h *UploadEchoHandler) Stats(c echo.Context) error {
	stats, err := h.uploader.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("stats failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, stats)
}
