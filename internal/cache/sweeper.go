// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package cache

import (
	"context"
	"time"

	"github.com/essence-shop/essence/internal/logging"
)

// Sweeper periodically calls Cache.Sweep. It implements suture.Service.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
}

// NewSweeper returns a sweeper for c. A non-positive interval defaults to
// five minutes.
func NewSweeper(c *Cache, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{cache: c, interval: interval}
}

// Serve runs until ctx is cancelled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := s.cache.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if n := s.cache.Sweep(); n > 0 {
				logging.Debug().Int("swept", n).Int("remaining", s.cache.Len()).Msg("Cache sweep")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *Sweeper) String() string {
	return "cache-sweeper"
}
