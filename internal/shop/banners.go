// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"strings"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// BannerInput creates or updates a home page banner.
type BannerInput struct {
	Title    string     `json:"title" validate:"required,notblank,max=160"`
	Subtitle string     `json:"subtitle" validate:"max=300"`
	ImageURL string     `json:"image_url" validate:"required,url,max=500"`
	LinkURL  string     `json:"link_url" validate:"omitempty,max=500"`
	Position int        `json:"position" validate:"gte=0"`
	Active   *bool      `json:"active"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Version  int64      `json:"version" validate:"gte=0"`
}

func (in *BannerInput) check() error {
	if err := validation.Check(in); err != nil {
		return err
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return apperr.Field("ends_at", "ends_at must be after starts_at")
	}
	return nil
}

func applyBanner(b *models.Banner, in *BannerInput) {
	b.Title = strings.TrimSpace(in.Title)
	b.Subtitle = strings.TrimSpace(in.Subtitle)
	b.ImageURL = in.ImageURL
	b.LinkURL = in.LinkURL
	b.Position = in.Position
	b.Active = boolOr(in.Active, true)
	b.StartsAt = utcPtr(in.StartsAt)
	b.EndsAt = utcPtr(in.EndsAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC().Truncate(time.Millisecond)
	return &u
}

// CreateBanner adds a banner.
func (s *Service) CreateBanner(ctx context.Context, in BannerInput) (*models.Banner, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	b := &models.Banner{}
	applyBanner(b, &in)
	if err := s.banners.Create(ctx, b); err != nil {
		return nil, storeErr(err, "banner", "")
	}
	s.invalidate(ctx, PrefixStore)
	return b, nil
}

// GetBanner loads a banner.
func (s *Service) GetBanner(ctx context.Context, id string) (*models.Banner, error) {
	b, err := s.banners.Get(ctx, id)
	return b, storeErr(err, "banner", id)
}

// UpdateBanner replaces a banner.
func (s *Service) UpdateBanner(ctx context.Context, id string, in BannerInput) (*models.Banner, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	b, err := s.banners.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "banner", id)
	}
	if err := checkVersion("banner", b.Version, in.Version); err != nil {
		return nil, err
	}
	applyBanner(b, &in)
	if err := s.banners.Update(ctx, b); err != nil {
		return nil, storeErr(err, "banner", id)
	}
	s.invalidate(ctx, PrefixStore)
	return b, nil
}

// DeleteBanner removes a banner.
func (s *Service) DeleteBanner(ctx context.Context, id string) error {
	if err := s.banners.Delete(ctx, id); err != nil {
		return storeErr(err, "banner", id)
	}
	s.invalidate(ctx, PrefixStore)
	return nil
}

// ListBanners returns every banner ordered by position.
func (s *Service) ListBanners(ctx context.Context) ([]*models.Banner, error) {
	return s.banners.List(ctx, database.Where().OrderBy(models.FieldPosition, false))
}

// liveBanners returns the banners shown at now.
func (s *Service) liveBanners(ctx context.Context, now time.Time) ([]*models.Banner, error) {
	all, err := s.banners.List(ctx, database.Where(database.Eq(models.FieldActive, true)).OrderBy(models.FieldPosition, false))
	if err != nil {
		return nil, err
	}
	live := make([]*models.Banner, 0, len(all))
	for _, b := range all {
		if b.LiveAt(now) {
			live = append(live, b)
		}
	}
	return live, nil
}
