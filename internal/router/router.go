package router

import (
	"net/http"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/auth"
	"github.com/actuallystonmai/viewing-service/internal/handler"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/actuallystonmai/viewing-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(h *handler.Handler, authn *auth.Authenticator, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(metrics.Middleware)

	// Public
	r.Get("/health", healthCheck)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware)

		r.Post("/viewings", h.CreateViewing)
		r.Get("/viewings", h.ListViewings)
		r.Get("/viewings/me", h.ListMyViewings)
		r.Delete("/viewings/{viewingID}", h.DeleteViewing)

		r.Post("/circles", h.CreateCircle)
		r.Get("/circles", h.ListCircles)
		r.Post("/circles/{circleID}/members", h.AddCircleMember)
		r.Delete("/circles/{circleID}/members/{userID}", h.RemoveCircleMember)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
