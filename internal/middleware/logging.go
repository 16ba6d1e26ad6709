// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/essence-shop/essence/internal/logging"
)

// AccessLog writes one structured line per request. Server errors log at
// error level, client errors at warn and everything else at debug, so a
// production instance at info level only records failures.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		level := zerolog.DebugLevel
		switch {
		case sw.status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case sw.status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		logging.Ctx(r.Context()).WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", RoutePattern(r)).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
