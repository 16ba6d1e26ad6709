// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/cache"
	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
)

// Cache key prefixes. Every storefront read is cached under PrefixStore,
// filter facets under PrefixFilters and the admin dashboard under
// PrefixDashboard.
const (
	PrefixStore     = "store:"
	PrefixFilters   = "filters:"
	PrefixDashboard = "dashboard:"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Store  database.Store
	Cache  *cache.Cache
	Mailer notify.Mailer
	// Clock defaults to the wall clock.
	Clock clockwork.Clock
	// Hasher defaults to auth.DefaultHasher.
	Hasher *auth.Hasher

	Shop      config.ShopConfig
	CacheTTL  config.CacheConfig
	API       config.APIConfig
	ShopInbox string
}

// Service implements the back-office and storefront operations.
type Service struct {
	store  database.Store
	cache  *cache.Cache
	mailer notify.Mailer
	clock  clockwork.Clock
	hasher auth.Hasher

	shop      config.ShopConfig
	ttl       config.CacheConfig
	api       config.APIConfig
	shopInbox string

	products  *database.Repository[*models.Product]
	banners   *database.Repository[*models.Banner]
	orders    *database.Repository[*models.Order]
	users     *database.Repository[*models.User]
	addresses *database.Repository[*models.Address]
	reviews   *database.Repository[*models.Review]
	contacts  *database.Repository[*models.ContactMessage]

	brands      *Taxonomy[*models.Brand]
	categories  *Taxonomy[*models.Category]
	collections *Taxonomy[*models.Collection]
	scents      *Taxonomy[*models.Scent]
}

// New wires a Service.
func New(d Deps) *Service {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	hasher := auth.DefaultHasher
	if d.Hasher != nil {
		hasher = *d.Hasher
	}
	c := d.Cache
	if c == nil {
		c = cache.New(cache.WithClock(clock))
	}
	mailer := d.Mailer
	if mailer == nil {
		mailer = notify.LogMailer{}
	}
	if d.Shop.Name == "" {
		d.Shop.Name = "Essence"
	}

	s := &Service{
		store:     d.Store,
		cache:     c,
		mailer:    mailer,
		clock:     clock,
		hasher:    hasher,
		shop:      d.Shop,
		ttl:       d.CacheTTL,
		api:       d.API,
		shopInbox: d.ShopInbox,

		products:  database.NewRepository(d.Store, models.CollectionProducts, func() *models.Product { return &models.Product{} }, clock),
		banners:   database.NewRepository(d.Store, models.CollectionBanners, func() *models.Banner { return &models.Banner{} }, clock),
		orders:    database.NewRepository(d.Store, models.CollectionOrders, func() *models.Order { return &models.Order{} }, clock),
		users:     database.NewRepository(d.Store, models.CollectionUsers, func() *models.User { return &models.User{} }, clock),
		addresses: database.NewRepository(d.Store, models.CollectionAddresses, func() *models.Address { return &models.Address{} }, clock),
		reviews:   database.NewRepository(d.Store, models.CollectionReviews, func() *models.Review { return &models.Review{} }, clock),
		contacts:  database.NewRepository(d.Store, models.CollectionContacts, func() *models.ContactMessage { return &models.ContactMessage{} }, clock),
	}

	s.brands = newTaxonomy(s, "brand", models.CollectionBrands, models.FieldBrandID,
		func() *models.Brand { return &models.Brand{} },
		func(b *models.Brand, in TaxonInput) { b.Country = in.Country })
	s.categories = newTaxonomy(s, "category", models.CollectionCategories, models.FieldCategoryIDs,
		func() *models.Category { return &models.Category{} }, nil)
	s.collections = newTaxonomy(s, "collection", models.CollectionCollections, models.FieldCollectionIDs,
		func() *models.Collection { return &models.Collection{} }, nil)
	s.scents = newTaxonomy(s, "scent", models.CollectionScents, models.FieldScentIDs,
		func() *models.Scent { return &models.Scent{} },
		func(sc *models.Scent, in TaxonInput) { sc.Family = in.Family })
	return s
}

// Brands manages fragrance houses.
func (s *Service) Brands() *Taxonomy[*models.Brand] { return s.brands }

// Categories manages product categories.
func (s *Service) Categories() *Taxonomy[*models.Category] { return s.categories }

// Collections manages curated collections.
func (s *Service) Collections() *Taxonomy[*models.Collection] { return s.collections }

// Scents manages olfactory notes.
func (s *Service) Scents() *Taxonomy[*models.Scent] { return s.scents }

// Products exposes the product repository to the flag jobs.
func (s *Service) Products() *database.Repository[*models.Product] { return s.products }

// Orders exposes the order repository to the flag jobs.
func (s *Service) Orders() *database.Repository[*models.Order] { return s.orders }

// Reviews exposes the review repository to the flag jobs.
func (s *Service) Reviews() *database.Repository[*models.Review] { return s.reviews }

// Cache returns the read cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Now returns the service clock's time in UTC.
func (s *Service) Now() time.Time { return s.clock.Now().UTC() }

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// invalidate drops cached reads under each prefix.
func (s *Service) invalidate(ctx context.Context, prefixes ...string) {
	n := 0
	for _, p := range prefixes {
		n += s.cache.Invalidate(p)
	}
	if n > 0 {
		logging.Ctx(ctx).Debug().Strs("prefixes", prefixes).Int("entries", n).Msg("Cache invalidated")
	}
}

// ttlOr returns d, or def when d is not set.
func ttlOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func (s *Service) storefrontTTL() time.Duration { return ttlOr(s.ttl.StorefrontTTL, 30*time.Second) }
func (s *Service) filtersTTL() time.Duration    { return ttlOr(s.ttl.FiltersTTL, 600*time.Second) }
func (s *Service) dashboardTTL() time.Duration  { return ttlOr(s.ttl.DashboardTTL, 60*time.Second) }

// pageBounds clamps a requested page and size to the API limits.
func (s *Service) pageBounds(page, size int) (int, int) {
	def, maxSize := s.api.DefaultPageSize, s.api.MaxPageSize
	if def <= 0 {
		def = 24
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

// storeErr translates store sentinels into typed errors. entity and id name
// the document for not-found messages. Unknown errors, including
// database.ErrClosed, pass through unchanged.
func storeErr(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound(entity, id)
	case errors.Is(err, database.ErrConflict):
		return &apperr.Error{
			Kind:    apperr.KindConflict,
			Message: fmt.Sprintf("%s was modified by another request, reload and retry", entity),
			Err:     err,
		}
	case errors.Is(err, database.ErrDuplicate):
		return &apperr.Error{Kind: apperr.KindConflict, Message: fmt.Sprintf("%s already exists", entity), Err: err}
	default:
		return err
	}
}

// checkVersion rejects an update based on a stale read. A zero want skips
// the check.
func checkVersion(entity string, have, want int64) error {
	if want != 0 && have != want {
		return apperr.Conflict(fmt.Sprintf("%s was modified (version %d, you sent %d), reload and retry", entity, have, want))
	}
	return nil
}

// sendMail delivers msg and logs a failure instead of returning it.
func (s *Service) sendMail(ctx context.Context, msg notify.Message, buildErr error) {
	if buildErr != nil {
		logging.Ctx(ctx).Error().Err(buildErr).Str("kind", string(msg.Kind)).Msg("Failed to build mail")
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(msg.Kind)).Strs("to", msg.To).Msg("Failed to send mail")
	}
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
