// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package flags recomputes the computed product flags.
//
// Each flag has a selector that ranks products and keeps the top N. A run
// sets the flag on the selected products and clears it on every other
// product that still carries it, one Repository.Mutate per changed product,
// so concurrent catalog edits are retried rather than overwritten. The jobs
// are registered with the scheduler under "flags-<flag>".
package flags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/essence-shop/essence/internal/cache"
	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
)

// Catalog is what the jobs read and write. *shop.Service implements it.
type Catalog interface {
	Products() *database.Repository[*models.Product]
	Orders() *database.Repository[*models.Order]
	Cache() *cache.Cache
	Now() time.Time
}

// Config tunes the selectors and schedule.
type Config struct {
	TopN           int
	TrendingWindow time.Duration
	NewWindow      time.Duration
	MinReviews     int
	Intervals      map[models.Flag]time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopN:           12,
		TrendingWindow: 7 * 24 * time.Hour,
		NewWindow:      30 * 24 * time.Hour,
		MinReviews:     3,
		Intervals: map[models.Flag]time.Duration{
			models.FlagBestseller: time.Hour,
			models.FlagTrending:   15 * time.Minute,
			models.FlagTopRated:   time.Hour,
			models.FlagNew:        6 * time.Hour,
		},
	}
}

// ConfigFrom maps the jobs section of the application config, keeping
// defaults for unset values.
func ConfigFrom(c config.JobsConfig) Config {
	cfg := DefaultConfig()
	if c.TopN > 0 {
		cfg.TopN = c.TopN
	}
	if c.TrendingWindow > 0 {
		cfg.TrendingWindow = c.TrendingWindow
	}
	if c.NewWindow > 0 {
		cfg.NewWindow = c.NewWindow
	}
	if c.MinReviews > 0 {
		cfg.MinReviews = c.MinReviews
	}
	for flag, d := range map[models.Flag]time.Duration{
		models.FlagBestseller: c.BestsellerInterval,
		models.FlagTrending:   c.TrendingInterval,
		models.FlagTopRated:   c.TopRatedInterval,
		models.FlagNew:        c.NewInterval,
	} {
		if d > 0 {
			cfg.Intervals[flag] = d
		}
	}
	return cfg
}

// Result summarizes one run.
type Result struct {
	Flag     models.Flag `json:"flag"`
	Selected int         `json:"selected"`
	Set      int         `json:"set"`
	Cleared  int         `json:"cleared"`
}

// Recomputer runs the flag jobs.
type Recomputer struct {
	catalog Catalog
	cfg     Config
}

// New creates a Recomputer.
func New(catalog Catalog, cfg Config) *Recomputer {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultConfig().TopN
	}
	if cfg.MinReviews <= 0 {
		cfg.MinReviews = 1
	}
	return &Recomputer{catalog: catalog, cfg: cfg}
}

// TaskName is the scheduler name of the job for flag.
func TaskName(flag models.Flag) string {
	return "flags-" + string(flag)
}

// Register schedules one job per flag.
func (r *Recomputer) Register(s *scheduler.Scheduler) error {
	for _, flag := range models.AllFlags {
		interval := r.cfg.Intervals[flag]
		if interval <= 0 {
			interval = DefaultConfig().Intervals[flag]
		}
		err := s.Schedule(TaskName(flag), interval, func(ctx context.Context) error {
			_, err := r.Run(ctx, flag)
			return err
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", TaskName(flag), err)
		}
	}
	return nil
}

// Run recomputes one flag.
func (r *Recomputer) Run(ctx context.Context, flag models.Flag) (Result, error) {
	res := Result{Flag: flag}
	var (
		ids []string
		err error
	)
	switch flag {
	case models.FlagBestseller:
		ids, err = r.Bestsellers(ctx)
	case models.FlagTrending:
		ids, err = r.Trending(ctx)
	case models.FlagTopRated:
		ids, err = r.TopRated(ctx)
	case models.FlagNew:
		ids, err = r.NewArrivals(ctx)
	default:
		return res, fmt.Errorf("unknown flag %q", flag)
	}
	if err != nil {
		return res, fmt.Errorf("select %s: %w", flag, err)
	}
	res.Selected = len(ids)

	res.Set, res.Cleared, err = r.apply(ctx, flag, ids)
	if err != nil {
		return res, err
	}
	if res.Set+res.Cleared > 0 {
		r.catalog.Cache().Invalidate(shop.PrefixStore)
		r.catalog.Cache().Invalidate(shop.PrefixDashboard)
	}
	logging.Ctx(ctx).Info().
		Str("flag", string(flag)).
		Int("selected", res.Selected).
		Int("set", res.Set).
		Int("cleared", res.Cleared).
		Msg("Product flags recomputed")
	return res, nil
}

// apply makes flag true exactly for ids.
func (r *Recomputer) apply(ctx context.Context, flag models.Flag, ids []string) (set, cleared int, err error) {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	// Collect first: writes must not interleave with an open cursor.
	var changes []string
	err = r.catalog.Products().Each(ctx, database.Where(), func(p *models.Product) error {
		if p.Flags.Get(flag) != selected[p.ID] {
			changes = append(changes, p.ID)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, id := range changes {
		want := selected[id]
		_, err := r.catalog.Products().Mutate(ctx, id, func(p *models.Product) error {
			if p.Flags.Get(flag) == want {
				return database.ErrNoChange
			}
			p.Flags.Set(flag, want)
			return nil
		})
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return set, cleared, fmt.Errorf("update %s on %s: %w", flag, id, err)
		}
		if want {
			set++
			metrics.FlagChanges.WithLabelValues(string(flag), "set").Inc()
		} else {
			cleared++
			metrics.FlagChanges.WithLabelValues(string(flag), "cleared").Inc()
		}
	}
	return set, cleared, nil
}

func (r *Recomputer) top(ctx context.Context, q database.Query) ([]string, error) {
	products, err := r.catalog.Products().List(ctx, q.Paginate(1, r.cfg.TopN))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}

// Bestsellers selects active products with the highest sold_count.
func (r *Recomputer) Bestsellers(ctx context.Context) ([]string, error) {
	return r.top(ctx, database.Where(
		database.Eq(models.FieldActive, true),
		database.Gt(models.FieldSoldCount, 0),
	).OrderBy(models.FieldSoldCount, true))
}

// TopRated selects active products with the best rating among those with at
// least MinReviews approved reviews.
func (r *Recomputer) TopRated(ctx context.Context) ([]string, error) {
	return r.top(ctx, database.Where(
		database.Eq(models.FieldActive, true),
		database.Gte(models.FieldRatingCount, r.cfg.MinReviews),
	).OrderBy(models.FieldRatingAvg, true))
}

// NewArrivals selects the most recently created active products inside the
// new window.
func (r *Recomputer) NewArrivals(ctx context.Context) ([]string, error) {
	since := r.catalog.Now().Add(-r.cfg.NewWindow)
	return r.top(ctx, database.Where(
		database.Eq(models.FieldActive, true),
		database.Gte(models.FieldCreatedAt, since),
	).OrderBy(models.FieldCreatedAt, true))
}

// Trending selects active products with the most units ordered inside the
// trending window. Cancelled orders do not count.
func (r *Recomputer) Trending(ctx context.Context) ([]string, error) {
	since := r.catalog.Now().Add(-r.cfg.TrendingWindow)
	units := map[string]int{}
	err := r.catalog.Orders().Each(ctx, database.Where(
		database.Gte(models.FieldCreatedAt, since),
		database.Ne(models.FieldStatus, string(models.OrderCancelled)),
	), func(o *models.Order) error {
		for _, it := range o.Items {
			units[it.ProductID] += it.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, nil
	}

	candidates := make([]string, 0, len(units))
	for id := range units {
		candidates = append(candidates, id)
	}
	active := map[string]bool{}
	err = r.catalog.Products().Each(ctx, database.Where(
		database.In(models.FieldID, candidates),
		database.Eq(models.FieldActive, true),
	), func(p *models.Product) error {
		active[p.ID] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]string, 0, len(active))
	for id := range active {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if units[ranked[i]] != units[ranked[j]] {
			return units[ranked[i]] > units[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > r.cfg.TopN {
		ranked = ranked[:r.cfg.TopN]
	}
	return ranked, nil
}
