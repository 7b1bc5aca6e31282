package api

import (
	"errors"
	"net/http"

	domrepo "PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/domain/service"
	"PQAnalyzer/internal/report"
	"PQAnalyzer/internal/usecase"
	xhttp "PQAnalyzer/pkg/http"
)

// toAppError maps domain sentinels to HTTP errors. Unknown errors become 500.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domrepo.ErrRunNotFound):
		return xhttp.NotFoundError("run not found").WithError(err)
	case errors.Is(err, usecase.ErrAcquisitionRunning):
		return xhttp.ConflictError("ERR_ACQUISITION_RUNNING", "an acquisition is already running").WithError(err)
	case errors.Is(err, usecase.ErrAcquisitionIdle):
		return xhttp.ConflictError("ERR_ACQUISITION_IDLE", "no acquisition is running").WithError(err)
	case errors.Is(err, usecase.ErrUnknownSource):
		return xhttp.NewAppError("ERR_UNKNOWN_SOURCE", "source", err.Error(), http.StatusBadRequest)
	case errors.Is(err, report.ErrUnknownFormat):
		return xhttp.NewAppError("ERR_UNKNOWN_FORMAT", "format", err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrModelUnavailable):
		return xhttp.ServiceUnavailableError("ERR_MODEL_UNAVAILABLE", "classifier model unavailable").WithError(err)
	case errors.Is(err, service.ErrPredictionLength), errors.Is(err, service.ErrPredictionValue):
		return xhttp.NewAppError("ERR_MODEL_OUTPUT", "", "classifier returned a malformed prediction", http.StatusBadGateway).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
