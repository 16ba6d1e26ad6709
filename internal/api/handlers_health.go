// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/essence-shop/essence/internal/logging"
)

// readyTimeout bounds the database ping of the readiness probe.
const readyTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health is the liveness probe. It answers 200 whenever the process serves
// HTTP, regardless of dependencies.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, HealthStatus{
		Status:            "alive",
		DatabaseConnected: h.ping(r.Context()) == nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. It answers 503 while the document
// store cannot be reached.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Database is not reachable", nil)
		return
	}
	respondOK(w, r, HealthStatus{
		Status:            "ready",
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	})
}

func (h *Handler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}
