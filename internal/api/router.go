// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter assembles the HTTP surface: the engine endpoints under /api/v1,
// plus health and Prometheus metrics.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(h *Handler, cfg *MiddlewareConfig, logger zerolog.Logger) http.Handler {
	if cfg == nil {
		cfg = DefaultMiddlewareConfig()
	}

	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger.With().Str("component", "http").Logger()))
	r.Use(corsHandler(cfg))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter(cfg))
		r.Use(httpMetrics)

		r.Post("/listings/{id}/evaluate", h.EvaluateListing)
		r.Get("/listings/{id}/verdicts", h.ListVerdicts)
		r.Get("/users/{id}/recommendations", h.Recommendations)
		r.Post("/interactions", h.RecordInteraction)
	})

	return r
}
