// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wanderwin/proofcheck/internal/config"
)

// NewRouter builds the chi router with the full middleware stack and all
// API routes.
func NewRouter(h *Handler, cfg config.APIConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(requestLogMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateWindow := cfg.RateLimitWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	rateLimit := cfg.RateLimitRequests
	if rateLimit <= 0 {
		rateLimit = 100
	}
	r.Use(httprate.LimitByIP(rateLimit, rateWindow))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/submissions/validate", h.ValidateSubmission)
		r.Post("/challenges", h.UpsertChallenge)

		r.Route("/validator", func(r chi.Router) {
			r.Get("/config", h.GetValidatorConfig)
			r.Put("/config", h.PutValidatorConfig)
		})

		r.Route("/security", func(r chi.Router) {
			r.Get("/events", h.ListSecurityEvents)
			r.Get("/events/{id}", h.GetSecurityEvent)
			r.Post("/events/{id}/resolve", h.ResolveSecurityEvent)
			r.Get("/metrics", h.GetSecurityMetrics)
			r.Get("/users/{username}/events", h.GetUserSecurityEvents)
			r.Get("/alerts", h.ListAlerts)
			r.Post("/alerts/{id}/acknowledge", h.AcknowledgeAlert)
			r.Get("/flagged", h.ListFlagged)
			r.Post("/flagged/{id}/review", h.ReviewFlagged)
		})

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
