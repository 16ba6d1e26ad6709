// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
)

// ErrorWriter renders an error response. The API package passes its single
// error translator so auth failures share the response envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Accounts loads the current state of the account a token was issued to.
type Accounts interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Authenticate resolves the bearer token into a Principal. A request with no
// Authorization header continues as anonymous; a malformed, expired or
// revoked token is rejected with an unauthorized error.
//
// When accounts is not nil the token must also still describe its account:
// a token whose account was deleted, disabled or given another role is
// rejected.
func Authenticate(tokens *TokenManager, accounts Accounts, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), AnonymousPrincipal)))
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				onError(w, r, apperr.Unauthorized("Authorization header must be 'Bearer <token>'"))
				return
			}

			claims, err := tokens.Validate(strings.TrimSpace(token))
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
				msg := "Invalid or expired token"
				if errors.Is(err, ErrTokenRevoked) {
					msg = "Token has been revoked"
				}
				onError(w, r, &apperr.Error{Kind: apperr.KindUnauthorized, Message: msg, Err: err})
				return
			}

			principal := PrincipalFromClaims(claims)
			if accounts != nil {
				if err := checkAccount(r.Context(), accounts, claims); err != nil {
					onError(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func checkAccount(ctx context.Context, accounts Accounts, claims *Claims) error {
	u, err := accounts.GetUser(ctx, claims.Subject)
	switch {
	case apperr.KindOf(err) == apperr.KindNotFound:
		return apperr.Unauthorized("Account no longer exists")
	case err != nil:
		return err
	case !u.Active:
		logging.Ctx(ctx).Debug().Str("user_id", u.ID).Msg("Token for disabled account rejected")
		return apperr.Unauthorized("Account is disabled")
	case u.Role != claims.Role:
		logging.Ctx(ctx).Debug().Str("user_id", u.ID).Str("token_role", string(claims.Role)).Str("role", string(u.Role)).Msg("Token role is stale")
		return apperr.Unauthorized("Account role has changed; sign in again")
	}
	return nil
}

// RequireUser rejects anonymous callers.
func RequireUser(onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFrom(r.Context()).Anonymous() {
				onError(w, r, apperr.Unauthorized("Authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
