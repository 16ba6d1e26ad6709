// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package auth

import (
	"time"

	"github.com/jonboulle/clockwork"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/essence-shop/essence/internal/logging"
)

var (
	// RevokedTokensTotal counts logouts.
	RevokedTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "essence_auth_revoked_tokens_total",
			Help: "Access tokens revoked by logout",
		},
	)

	// RevokedTokenRejectionsTotal counts requests presenting a revoked token.
	RevokedTokenRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "essence_auth_revoked_token_rejections_total",
			Help: "Requests rejected because their token was revoked",
		},
	)
)

// Denylist holds revoked token ids. Entries expire with the token they
// revoke, so the list never outgrows the set of live tokens. Revocations
// are process-local and do not survive a restart.
type Denylist struct {
	entries *gocache.Cache
	clock   clockwork.Clock
}

// NewDenylist creates an empty denylist.
func NewDenylist(clock clockwork.Clock) *Denylist {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Denylist{
		entries: gocache.New(gocache.NoExpiration, 10*time.Minute),
		clock:   clock,
	}
}

// Revoke denies jti until exp. A zero or past exp is ignored because the
// token is no longer accepted anyway.
func (d *Denylist) Revoke(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	ttl := exp.Sub(d.clock.Now())
	if ttl <= 0 {
		return
	}
	d.entries.Set(jti, exp, ttl)
	RevokedTokensTotal.Inc()
	logging.Debug().Str("jti", jti).Time("expires_at", exp).Msg("Token revoked")
}

// IsRevoked reports whether jti has been revoked.
func (d *Denylist) IsRevoked(jti string) bool {
	v, ok := d.entries.Get(jti)
	if !ok {
		return false
	}
	// go-cache expires on the wall clock; check against the injected clock too.
	if exp, _ := v.(time.Time); !d.clock.Now().Before(exp) {
		return false
	}
	RevokedTokenRejectionsTotal.Inc()
	return true
}

// Len returns the number of live revocations.
func (d *Denylist) Len() int {
	return d.entries.ItemCount()
}
