// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package supervisor owns every long-running goroutine in Essence.

The process runs as a suture v4 tree. Nothing in the shop spawns an untracked
goroutine: background work is a suture.Service added to one of three layers.

	root ("essence")
	├── data-layer
	│   └── cache-sweeper
	├── jobs-layer
	│   └── scheduler        (flags-bestseller, flags-trending, flags-top-rated, flags-new)
	└── api-layer
	    └── http-server

Each layer counts failures on its own, so a crashing flag job backs off
without taking the HTTP server with it.

# Shutdown

Cancelling the context passed to Serve stops the layers. Every service is
given ShutdownTimeout to return; anything still running afterwards shows up
in UnstoppedServiceReport, which cmd/server logs before exiting. The
document store is not a service: cmd/server closes it after Serve returns,
once nothing can issue queries any more.

# Configuration

TreeConfig mirrors config.SupervisorConfig:

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfigFrom(cfg.Supervisor))
	tree.AddDataService(cache.NewSweeper(c, cfg.Cache.SweepInterval))
	tree.AddJobService(sched)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Zero values fall back to suture's defaults (5 failures, 30s decay, 15s
backoff) and a 10s shutdown timeout.

# Events

Supervisor events go through sutureslog into the slog adapter from the
logging package, so restarts and backoffs land in the same zerolog stream as
request logs.
*/
package supervisor
