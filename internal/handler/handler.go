package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/actuallystonmai/viewing-service/internal/domain"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/actuallystonmai/viewing-service/internal/service"
	"github.com/actuallystonmai/viewing-service/internal/validation"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Request failed validation",
		Fields:  fields,
	})
}

// writeServiceError maps service errors onto the HTTP error taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeValidationError(w, verr.FieldMap())
		return
	}
	var ferr *domain.FieldError
	if errors.As(err, &ferr) {
		writeValidationError(w, map[string]string{ferr.Field: ferr.Message})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "invalid_cursor", "Cursor is invalid or expired, restart pagination")
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", "Malformed id")
	case errors.Is(err, domain.ErrViewingNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Viewing not found")
	case errors.Is(err, domain.ErrCircleNotFound):
		writeError(w, http.StatusNotFound, "circle_not_found", "Circle not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Not allowed to modify this resource")
	case errors.Is(err, domain.ErrNotCircleMember):
		writeError(w, http.StatusForbidden, "not_circle_member", "Not a member of the requested circle")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", "Idempotency key already used")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
	default:
		logging.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// GET /ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "not_ready", "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
