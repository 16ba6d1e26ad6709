// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package api provides the HTTP REST API layer for Essence.

Every JSON response uses the same envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ..., "request_id": ..., "query_time_ms": 3}}
	{"status": "error", "error": {"code": "CONFLICT", "message": "...", "details": {...}}, "metadata": {...}}

Services return typed errors from the apperr package. writeServiceError is the
single place they become status codes:

	validation    400 VALIDATION_ERROR
	unauthorized  401 AUTHENTICATION_ERROR
	forbidden     403 AUTHORIZATION_ERROR
	not found     404 NOT_FOUND
	conflict      409 CONFLICT (duplicates, stale versions, illegal transitions)
	upstream      502 UPSTREAM_ERROR
	internal      500 INTERNAL_ERROR

Route groups under /api/v1:

  - /auth: register, login, logout, me
  - /store: public catalog, search, facets, reviews, contact form, checkout
  - /account: profile, password, addresses and orders of the signed-in customer
  - /admin: catalog, taxonomies, banners, orders, users, moderation, dashboard,
    scheduled jobs, cache control, audit log

Admin mutations are recorded in the audit trail with the acting user and
their outcome.

/health, /health/ready, /metrics and the Swagger UI under /swagger/ sit outside the
versioned prefix.

Every /api/v1 request passes through bearer authentication, which yields an
anonymous principal when no token is presented, then through the Casbin role
policy in the authz package. Login, registration, checkout and the contact
form have their own rate limits on top of the default limiter.
*/
package api
