package handler

import (
	"net/http"

	"github.com/actuallystonmai/viewing-service/internal/auth"
	"github.com/go-chi/chi/v5"
)

// POST /circles
func (h *Handler) CreateCircle(w http.ResponseWriter, r *http.Request) {
	var req CreateCircleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.service.CreateCircle(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: c.ID})
}

// GET /circles
func (h *Handler) ListCircles(w http.ResponseWriter, r *http.Request) {
	circles, err := h.service.ListCircles(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CirclesResponse{Items: circles})
}

// POST /circles/{circleID}/members
func (h *Handler) AddCircleMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.service.AddCircleMember(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "circleID"), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// DELETE /circles/{circleID}/members/{userID}
func (h *Handler) RemoveCircleMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveCircleMember(r.Context(), auth.UserID(r.Context()),
		chi.URLParam(r, "circleID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
