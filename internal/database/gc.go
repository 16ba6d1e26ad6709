// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/thejerf/suture/v4"

	"github.com/essence-shop/essence/internal/logging"
)

type gcRunner interface {
	RunGC() error
}

// GCService compacts the Badger value log on an interval. It implements
// suture.Service and is a no-op for other engines.
type GCService struct {
	store    Store
	interval time.Duration
	clock    clockwork.Clock
}

// NewGCService returns a GC service for store. A nil clock uses the wall
// clock.
func NewGCService(store Store, interval time.Duration, clock clockwork.Clock) *GCService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GCService{store: store, interval: interval, clock: clock}
}

func (g *GCService) runner() gcRunner {
	s := g.store
	if m, ok := s.(*Manager); ok {
		s = m.Unwrap()
	}
	r, _ := s.(gcRunner)
	return r
}

// Serve runs until ctx is cancelled.
func (g *GCService) Serve(ctx context.Context) error {
	if g.interval <= 0 || g.store.Engine() != EngineBadger {
		logging.Debug().Str("engine", g.store.Engine()).Msg("Value log GC disabled")
		return suture.ErrDoNotRestart
	}

	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			r := g.runner()
			if r == nil {
				continue
			}
			start := g.clock.Now()
			if err := r.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Value log GC failed")
				continue
			}
			logging.Debug().Dur("took", g.clock.Since(start)).Msg("Value log GC complete")
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (g *GCService) String() string {
	return "badger-gc"
}
