package api

import (
	"errors"

	domrepo "PairLab/internal/domain/repository"
	"PairLab/internal/services/analytics"
	"PairLab/internal/usecase"
	xhttp "PairLab/pkg/http"
)

// toAppError maps use case and analytics failures onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var lineErr *usecase.LineError
	switch {
	case errors.As(err, &lineErr):
		return xhttp.BadRequestErrorf("invalid tick on line %d: %v", lineErr.Line, lineErr.Err).
			WithCode("ERR_INVALID_LINE").WithParam("line", lineErr.Line).WithError(err)
	case errors.Is(err, analytics.ErrInvalidTimestamp):
		return xhttp.BadRequestError(err.Error()).WithCode("ERR_INVALID_TIMESTAMP").WithError(err)
	case errors.Is(err, domrepo.ErrInvalidTick):
		return xhttp.BadRequestError(err.Error()).WithCode("ERR_INVALID_TICK").WithError(err)
	case errors.Is(err, usecase.ErrNoData):
		return xhttp.NotFoundError("No data found for the given symbols").WithCode("ERR_NO_DATA").WithError(err)
	case errors.Is(err, analytics.ErrNoOverlap):
		return xhttp.NotFoundError("No overlapping timestamps found").WithCode("ERR_NO_OVERLAP").WithError(err)
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError("Resource not found").WithError(err)
	case errors.Is(err, analytics.ErrDegenerateInput):
		return xhttp.UnprocessableError(err.Error()).WithCode("ERR_DEGENERATE_INPUT").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
