/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/auth"
	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/planner"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/store"
)

// maxRequestBytes caps plan request bodies.
const maxRequestBytes = 1 << 20

// API exposes the planner over HTTP.
type API struct {
	planner   *planner.Service
	store     *store.Store
	exports   *schedule.ExportService
	bus       events.Broker
	jwtSecret []byte
	limiter   *ClientLimiter
	logger    zerolog.Logger
}

// New creates the API handler set.
func New(svc *planner.Service, st *store.Store, exports *schedule.ExportService, bus events.Broker, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		planner:   svc,
		store:     st,
		exports:   exports,
		bus:       bus,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// SetRateLimit limits planning requests per client. rps <= 0 disables it.
func (a *API) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		a.limiter = nil
		return
	}
	a.limiter = NewClientLimiter(rps, burst)
}

// Routes registers API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.With(auth.Middleware(a.jwtSecret)).Get("/events", a.handleEvents)

		r.Route("/schedule", func(r chi.Router) {
			r.With(a.rateLimit).Post("/preview", a.handlePreview)

			r.Get("/tasks", a.handleTasksList)
			r.Get("/schedules", a.handleSchedulesList)
			r.Get("/slots", a.handleSlotsList)
			r.Get("/runs", a.handleRunsList)
			r.Get("/export/ical", a.handleExportICal)

			r.Group(func(pr chi.Router) {
				pr.Use(auth.Middleware(a.jwtSecret))

				pr.With(a.rateLimit).Post("/", a.handleCommit)
				pr.Delete("/schedules/{entryID}", a.handleEntryDelete)
				pr.Delete("/tasks/{taskID}", a.handleTaskDelete)
				pr.Get("/audit", a.handleAuditList)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("health check: database unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

// meta describes the caller of a mutating request.
func meta(r *http.Request) planner.Meta {
	return planner.Meta{
		Actor:     auth.ActorFromContext(r.Context()),
		IPAddress: clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes {"error": code, "detail": detail}; detail is omitted when empty.
func writeError(w http.ResponseWriter, status int, code string, detail ...string) {
	body := map[string]string{"error": code}
	if len(detail) > 0 && detail[0] != "" {
		body["detail"] = detail[0]
	}
	writeJSON(w, status, body)
}
