package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spacesedan/platepick/internal/monitoring"
)

// NewRouter wires the search, history, health and metrics endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.PrometheusMiddleware)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", monitoring.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", h.SearchQuery)
		r.Post("/search", h.SearchBody)
		r.Get("/history", h.History)
	})

	return r
}
