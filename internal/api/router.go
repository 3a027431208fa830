// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
)

// NewRouter builds the chi route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)

	if len(h.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz/live", h.handleLiveness)
	r.Get("/healthz/ready", h.handleReadiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.handleWebsocket)

	r.Route("/api/v1", func(r chi.Router) {
		if h.cfg.RateLimitReqs > 0 {
			window := h.cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(h.cfg.RateLimitReqs, window))
		}

		r.Route("/chores", func(r chi.Router) {
			r.Get("/", h.handleListChores)
			r.Post("/", h.handleCreateChore)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetChore)
				r.Put("/", h.handleUpdateChore)
				r.Delete("/", h.handleDeleteChore)
				r.Post("/claim", h.handleClaim)
				r.Post("/approve", h.handleApprove)
				r.Post("/disapprove", h.handleDisapprove)
				r.Post("/skip", h.handleSkip)
				r.Put("/due-date", h.handleSetDueDate)
			})
		})

		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.handleListPeople)
			r.Post("/", h.handleCreatePerson)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetPerson)
				r.Put("/", h.handleUpdatePerson)
				r.Delete("/", h.handleDeletePerson)
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/leaderboard", h.handleLeaderboard)
			r.Get("/chores/{id}", h.handleChoreHistory)
		})
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, pattern,
			fmt.Sprintf("%d", ww.Status()), time.Since(start))
	})
}
