// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package middleware provides the HTTP middleware shared by every route.

All components have the chi signature func(http.Handler) http.Handler and
are mounted by internal/api:

  - RequestID: X-Request-ID propagation and logging context
  - AccessLog: one zerolog line per request
  - PrometheusMetrics: request count, duration and in-flight gauge labelled
    by chi route pattern
  - Compression: gzip for clients that accept it
  - PerformanceMonitor: rolling latency percentiles for the admin
    performance endpoint

Authentication and authorization live in internal/auth and internal/authz.
*/
package middleware
