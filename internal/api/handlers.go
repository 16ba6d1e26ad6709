// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"context"
	"time"

	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/flags"
	"github.com/essence-shop/essence/internal/middleware"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
)

// Pinger reports store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files by surface:
//   - handlers_health.go: liveness, readiness
//   - handlers_auth.go: register, login, logout, me
//   - handlers_store.go: public storefront, reviews, contact, checkout
//   - handlers_account.go: profile, password, addresses, own orders
//   - handlers_admin_catalog.go: products, taxonomies, banners
//   - handlers_admin.go: orders, users, reviews, contacts, dashboard, jobs, cache
//   - handlers_audit.go: audit recording and the audit log
type Handler struct {
	shop      *shop.Service
	tokens    *auth.TokenManager
	db        Pinger
	jobs      *scheduler.Scheduler
	flags     *flags.Recomputer
	perfMon   *middleware.PerformanceMonitor
	audit     *audit.Logger
	config    *config.Config
	startTime time.Time
}

// HandlerDeps are the collaborators of a Handler. Jobs, Flags, PerfMon and
// Audit may be nil; the corresponding admin endpoints then report an empty
// state.
type HandlerDeps struct {
	Shop    *shop.Service
	Tokens  *auth.TokenManager
	DB      Pinger
	Jobs    *scheduler.Scheduler
	Flags   *flags.Recomputer
	PerfMon *middleware.PerformanceMonitor
	Audit   *audit.Logger
	Config  *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(d HandlerDeps) *Handler {
	db := d.DB
	if db == nil {
		db = d.Shop
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		shop:      d.Shop,
		tokens:    d.Tokens,
		db:        db,
		jobs:      d.Jobs,
		flags:     d.Flags,
		perfMon:   d.PerfMon,
		audit:     d.Audit,
		config:    cfg,
		startTime: time.Now(),
	}
}
