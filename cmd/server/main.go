// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/essence-shop/essence/internal/api"
	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/authz"
	"github.com/essence-shop/essence/internal/cache"
	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/flags"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/middleware"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
	"github.com/essence-shop/essence/internal/supervisor"
	"github.com/essence-shop/essence/internal/supervisor/services"
)

// perfMonWindow is how many recent requests the performance monitor keeps.
const perfMonWindow = 1000

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("engine", cfg.Database.Engine).
		Bool("jobs_enabled", cfg.Jobs.Enabled).
		Bool("mail_enabled", cfg.Mail.Enabled).
		Msg("Starting Essence with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DATA LAYER ===
	db := database.NewManager(cfg.Database)
	openCtx, openCancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout+5*time.Second)
	if err := db.Open(openCtx); err != nil {
		openCancel()
		logging.Fatal().Err(err).Msg("Failed to open document store")
	}
	indexes := append(append([]database.Index{}, database.DefaultIndexes...), audit.Indexes...)
	if err := db.EnsureIndexes(openCtx, indexes); err != nil {
		openCancel()
		logging.Fatal().Err(err).Msg("Failed to ensure indexes")
	}
	openCancel()
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := db.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing document store")
		}
	}()
	logging.Info().Str("engine", db.Engine()).Msg("Document store ready")

	storeCache := cache.New()

	var mailer notify.Mailer = notify.New(cfg.Mail)
	if cfg.Mail.Enabled {
		mailer = notify.NewResilientMailer(mailer, cfg.Mail.RatePerMinute)
	}

	svc := shop.New(shop.Deps{
		Store:     db,
		Cache:     storeCache,
		Mailer:    mailer,
		Shop:      cfg.Shop,
		CacheTTL:  cfg.Cache,
		API:       cfg.API,
		ShopInbox: cfg.Mail.ShopInbox,
	})

	created, err := svc.EnsureAdmin(ctx, cfg.Security.AdminEmail, cfg.Security.AdminPassword)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to provision admin account")
	}
	if created {
		logging.Info().Str("email", cfg.Security.AdminEmail).Msg("Admin account created")
	}

	auditLog := audit.NewLogger(audit.NewStore(db, nil), audit.ConfigFrom(cfg.Audit), nil)
	if !cfg.Audit.Enabled {
		logging.Info().Msg("Audit trail disabled (AUDIT_ENABLED=false)")
	}

	// === JOBS ===
	jobs := scheduler.New(scheduler.Config{
		RunTimeout:      5 * time.Minute,
		ShutdownTimeout: cfg.Supervisor.ShutdownTimeout,
	})
	var recomputer *flags.Recomputer
	if cfg.Jobs.Enabled {
		recomputer = flags.New(svc, flags.ConfigFrom(cfg.Jobs))
		if err := recomputer.Register(jobs); err != nil {
			logging.Fatal().Err(err).Msg("Failed to schedule flag jobs")
		}
	} else {
		logging.Info().Msg("Flag jobs disabled (JOBS_ENABLED=false)")
	}

	// === API ===
	tokens, err := auth.NewTokenManager(cfg.Security, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization policy")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	perfMon := middleware.NewPerformanceMonitor(perfMonWindow, api.DefaultSlowRequestThreshold)
	handler := api.NewHandler(api.HandlerDeps{
		Shop:    svc,
		Tokens:  tokens,
		DB:      db,
		Jobs:    jobs,
		Flags:   recomputer,
		PerfMon: perfMon,
		Audit:   auditLog,
		Config:  cfg,
	})
	router := api.NewRouter(handler, tokens, enforcer, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)), perfMon)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(database.NewGCService(db, cfg.Database.GCInterval, nil))
	tree.AddDataService(cache.NewSweeper(storeCache, cfg.Cache.SweepInterval))
	tree.AddDataService(auditLog)
	tree.AddJobService(jobs)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	drain := func() {
		logging.Info().Msg("Stopping scheduled tasks, waiting for supervisor to finish...")
		jobs.CancelAll()
		waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout)
		defer waitCancel()
		if err := jobs.Wait(waitCtx); err != nil {
			logging.Warn().Err(err).Msg("Scheduled tasks still running at shutdown")
		}
	}
	if err := tree.Run(ctx, drain); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
