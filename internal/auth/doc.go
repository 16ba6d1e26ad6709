// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package auth authenticates API callers.

Key Components:

  - TokenManager: issues and validates HS256 access tokens. Claims carry the
    user id (sub), email (username), role and a unique token id (jti).
  - Denylist: token ids revoked by logout, kept until the token would have
    expired anyway.
  - HashPassword / CheckPassword: bcrypt password hashing.
  - Authenticate: HTTP middleware that resolves the bearer token into a
    Principal stored in the request context. Requests without a token get the
    anonymous principal; authorization decides what they may do. Tokens of
    deleted, disabled or re-roled accounts are rejected.

Usage Example:

	tokens, err := auth.NewTokenManager(cfg.Security, clock)
	if err != nil {
	    return err
	}
	r.Use(auth.Authenticate(tokens, shopService, writeError))

	p := auth.PrincipalFrom(r.Context())
	if p.Anonymous() {
	    ...
	}
*/
package auth
