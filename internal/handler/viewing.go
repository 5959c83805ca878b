package handler

import (
	"fmt"
	"net/http"

	"github.com/actuallystonmai/viewing-service/internal/auth"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/service"
	"github.com/go-chi/chi/v5"
)

// POST /viewings
func (h *Handler) CreateViewing(w http.ResponseWriter, r *http.Request) {
	var req CreateViewingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := req.validate(); verr != nil {
		writeValidationError(w, verr.FieldMap())
		return
	}

	v, created, err := h.service.CreateViewing(r.Context(), auth.UserID(r.Context()), req.toDomain())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, IDResponse{ID: v.ID})
}

// GET /viewings
func (h *Handler) ListViewings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := intParam(q, "limit", service.DefaultLimit, 1, service.MaxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter",
			fmt.Sprintf("limit must be between 1 and %d", service.MaxLimit))
		return
	}

	dir, err := feed.ParseDirection(q.Get("sort"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	userID := auth.UserID(r.Context())
	f, err := feed.BuildFilter(userID, filterQuery(q))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.service.ListFeed(r.Context(), userID, f, q.Get("cursor"), dir, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /viewings/me
func (h *Handler) ListMyViewings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := intParam(q, "page", 1, 1, service.MaxLegacyPage)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid page parameter")
		return
	}
	limit, ok := intParam(q, "limit", service.DefaultLegacyLimit, 1, service.MaxLegacyLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
		return
	}

	userID := auth.UserID(r.Context())
	fq := filterQuery(q)
	fq.Scope, fq.Circle = "", ""
	f, err := feed.BuildFilter(userID, fq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items, err := h.service.ListOwnViewings(r.Context(), userID, f, page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LegacyPageResponse{Page: page, Limit: limit, Items: items})
}

// DELETE /viewings/{viewingID}
func (h *Handler) DeleteViewing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "viewingID")
	if err := h.service.DeleteViewing(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
