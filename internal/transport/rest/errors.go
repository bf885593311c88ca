package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeServiceError maps the service error taxonomy onto HTTP.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	var dependency *domain.DependencyError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_error", validation.Error())
	case errors.Is(err, store.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different request")
	case errors.Is(err, store.ErrUnknownClient):
		writeError(w, http.StatusNotFound, "not_found", "client not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.As(err, &dependency):
		h.logger.ErrorContext(r.Context(), "dependency failure", slog.String("op", dependency.Op), slog.Any("error", dependency.Err))
		writeError(w, http.StatusServiceUnavailable, "dependency_unavailable", "a backing service is unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "unhandled error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
