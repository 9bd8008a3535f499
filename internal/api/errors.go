package api

import (
	"log/slog"
	"net/http"

	"github.com/text2sql/text2sql/internal/config"
	"github.com/text2sql/text2sql/internal/observability"
	"github.com/text2sql/text2sql/internal/text2sql"
)

const (
	kindInvalidRequest = "invalid_request"
	kindNotConfigured  = "not_configured"
	kindInternal       = "internal"
)

type errorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// failureStatus maps an error kind to its HTTP status. Unless standard
// statuses are enabled, every failure is reported with 200.
func failureStatus(cfg config.HTTPConfig, kind string) int {
	if !cfg.ErrorStatus {
		return http.StatusOK
	}
	switch kind {
	case string(text2sql.KindDatabase):
		return http.StatusServiceUnavailable
	case string(text2sql.KindModel):
		return http.StatusBadGateway
	case string(text2sql.KindExecution):
		return http.StatusUnprocessableEntity
	case kindInvalidRequest:
		return http.StatusBadRequest
	case kindNotConfigured:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	kind := kindInternal
	if typed, ok := text2sql.KindOf(err); ok {
		kind = string(typed)
	}
	if deps.Logger != nil {
		deps.Logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error_kind", kind),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, failureStatus(cfg.HTTP, kind), errorResponse{Error: err.Error(), ErrorKind: kind})
}

// writeInvalidRequest always answers 400: a body that cannot be decoded
// never reaches the service.
func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, ErrorKind: kindInvalidRequest})
}

func writeNotConfigured(cfg config.Config, w http.ResponseWriter) {
	writeJSON(w, failureStatus(cfg.HTTP, kindNotConfigured), errorResponse{
		Error:     "query service is not configured",
		ErrorKind: kindNotConfigured,
	})
}
