// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package authz

import (
	"net/http"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/logging"
)

// AuthorizeRequest determines the action from the HTTP method and authorizes
// the principal's role on the request path. Anonymous callers that are
// denied get an unauthorized error so clients know to log in; authenticated
// callers get forbidden.
func AuthorizeRequest(e *Enforcer, onError auth.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFrom(r.Context())
			action := methodToAction(r.Method)

			allowed, err := e.Enforce(string(p.Role), r.URL.Path, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				onError(w, r, apperr.Internal("Authorization failed", err))
				return
			}

			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("role", string(p.Role)).
					Str("path", r.URL.Path).
					Str("action", action).
					Msg("Access denied")
				if p.Anonymous() {
					onError(w, r, apperr.Unauthorized("Authentication required"))
					return
				}
				onError(w, r, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}
