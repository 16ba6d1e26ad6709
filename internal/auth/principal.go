// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package auth

import (
	"context"

	"github.com/essence-shop/essence/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   models.Role
	// Claims is nil for anonymous callers.
	Claims *Claims
}

// AnonymousPrincipal is the caller of a request without a token.
var AnonymousPrincipal = Principal{Role: models.RoleAnonymous}

// Anonymous reports whether p is unauthenticated.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

// IsAdmin reports whether p has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// PrincipalFromClaims converts validated claims.
func PrincipalFromClaims(c *Claims) Principal {
	return Principal{UserID: c.Subject, Email: c.Username, Role: c.Role, Claims: c}
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom returns the principal stored in ctx, or AnonymousPrincipal.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalContextKey).(Principal); ok {
		return p
	}
	return AnonymousPrincipal
}
