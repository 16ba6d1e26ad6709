// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package main is the entry point for the Essence server.

Essence serves a perfume storefront and its back-office over one REST API.
Customers browse the catalog, review products and check out as guests or
signed-in users; staff manage products, taxonomies, banners, orders, users,
reviews and contact messages. Background jobs keep the new, trending,
bestseller and top rated flags on products current.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("essence")
	├── DataSupervisor ("data-layer")
	│   ├── badger-gc (value log GC, badger engine only)
	│   ├── cache-sweeper
	│   └── audit-writer (admin audit trail, retention cleanup)
	├── JobSupervisor ("job-layer")
	│   └── scheduler (flags-new, flags-trending, flags-bestseller, flags-top_rated)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi router)

Component initialization order:

 1. Configuration: .env via godotenv, then Koanf v2 defaults, config.yaml and environment
 2. Logging: zerolog with JSON or console output
 3. Document store: embedded BadgerDB or MongoDB, chosen by DB_ENGINE
 4. Shop service: TTL cache, mailer behind a circuit breaker, admin bootstrap
 5. Scheduler: flag recomputation tasks
 6. Auth: JWT tokens and the Casbin role policy
 7. Supervisor tree and HTTP server

# Configuration

Configuration is layered, highest priority wins:
  - Environment variables
  - Config file (config.yaml, or the path in CONFIG_PATH)
  - Built-in defaults

Required in production:
  - JWT_SECRET: 32+ character secret for token signing
  - ADMIN_EMAIL, ADMIN_PASSWORD: bootstrap admin account, created once

# Signal Handling

On SIGINT or SIGTERM the server stops accepting connections, drains
in-flight requests, cancels scheduled tasks, waits for running task
invocations and closes the document store.

# Example Usage

Development with the embedded store:

	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_EMAIL=admin@example.com
	export ADMIN_PASSWORD=change-me-please
	./essence

With MongoDB:

	export DB_ENGINE=mongo
	export MONGO_URI=mongodb://localhost:27017
	export MONGO_DATABASE=essence
	./essence
*/
package main
