// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/cache"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// RailSize is the number of products in each home page rail.
const RailSize = 8

// Rail is a row of flagged products on the home page.
type Rail struct {
	Flag     models.Flag       `json:"flag"`
	Products []*models.Product `json:"products"`
}

// Home is the storefront landing page.
type Home struct {
	Banners []*models.Banner `json:"banners"`
	Rails   []Rail           `json:"rails"`
}

// ProductDetail is a product page.
type ProductDetail struct {
	Product *models.Product  `json:"product"`
	Brand   *models.Brand    `json:"brand,omitempty"`
	Reviews []*models.Review `json:"reviews"`
}

// PriceRange spans the starting prices of active products.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Facets lists the values the storefront can filter on.
type Facets struct {
	Brands         []*models.Brand        `json:"brands"`
	Categories     []*models.Category     `json:"categories"`
	Collections    []*models.Collection   `json:"collections"`
	Scents         []*models.Scent        `json:"scents"`
	Genders        []models.Gender        `json:"genders"`
	Concentrations []models.Concentration `json:"concentrations"`
	Flags          []models.Flag          `json:"flags"`
	Price          PriceRange             `json:"price"`
}

// railSort orders each rail by what earned the flag.
var railSort = map[models.Flag]string{
	models.FlagNew:        SortNewest,
	models.FlagTrending:   SortBestseller,
	models.FlagBestseller: SortBestseller,
	models.FlagTopRated:   SortRating,
}

// StoreHome returns live banners and one rail per flag.
func (s *Service) StoreHome(ctx context.Context) (*Home, error) {
	return cache.GetOrCompute(ctx, s.cache, PrefixStore+"home", s.storefrontTTL(), func(ctx context.Context) (*Home, error) {
		banners, err := s.liveBanners(ctx, s.Now())
		if err != nil {
			return nil, err
		}
		home := &Home{Banners: banners, Rails: make([]Rail, 0, len(models.AllFlags))}
		active := true
		for _, flag := range models.AllFlags {
			f := ProductFilter{Flag: flag, Active: &active, Sort: railSort[flag]}
			products, err := s.products.List(ctx, f.query().Paginate(1, RailSize))
			if err != nil {
				return nil, err
			}
			if products == nil {
				products = []*models.Product{}
			}
			home.Rails = append(home.Rails, Rail{Flag: flag, Products: products})
		}
		return home, nil
	})
}

// StoreProducts lists active products. The Active field of f is ignored.
func (s *Service) StoreProducts(ctx context.Context, f ProductFilter) (models.Page[*models.Product], error) {
	if err := validation.Check(&f); err != nil {
		return models.Page[*models.Product]{}, err
	}
	active := true
	f.Active = &active
	f.Page, f.PageSize = s.pageBounds(f.Page, f.PageSize)
	key := cache.GenerateKey(PrefixStore+"products", f)
	return cache.GetOrCompute(ctx, s.cache, key, s.storefrontTTL(), func(ctx context.Context) (models.Page[*models.Product], error) {
		return s.products.Page(ctx, f.query(), f.Page, f.PageSize)
	})
}

// StoreSearch runs a text search over active products.
func (s *Service) StoreSearch(ctx context.Context, q string, page, size int) (models.Page[*models.Product], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return models.Page[*models.Product]{}, apperr.Field("q", "q is required")
	}
	return s.StoreProducts(ctx, ProductFilter{Search: q, Sort: SortRating, Page: page, PageSize: size})
}

// StoreProduct returns an active product by slug with its approved reviews.
func (s *Service) StoreProduct(ctx context.Context, slug string) (*ProductDetail, error) {
	key := cache.GenerateKey(PrefixStore+"product", slug)
	return cache.GetOrCompute(ctx, s.cache, key, s.storefrontTTL(), func(ctx context.Context) (*ProductDetail, error) {
		p, err := s.products.FindOne(ctx, database.Where(
			database.Eq(models.FieldSlug, slug),
			database.Eq(models.FieldActive, true),
		))
		if err != nil {
			return nil, storeErr(err, "product", slug)
		}
		reviews, err := s.approvedReviews(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		detail := &ProductDetail{Product: p, Reviews: reviews}
		if p.BrandID != "" {
			if b, err := s.brands.repo.Get(ctx, p.BrandID); err == nil && b.Active {
				detail.Brand = b
			}
		}
		return detail, nil
	})
}

// StoreReviews lists the approved reviews of an active product.
func (s *Service) StoreReviews(ctx context.Context, slug string) ([]*models.Review, error) {
	detail, err := s.StoreProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	return detail.Reviews, nil
}

func (s *Service) approvedReviews(ctx context.Context, productID string) ([]*models.Review, error) {
	reviews, err := s.reviews.List(ctx, database.Where(
		database.Eq(models.FieldProductID, productID),
		database.Eq(models.FieldApproved, true),
	).OrderBy(models.FieldCreatedAt, true))
	if reviews == nil && err == nil {
		reviews = []*models.Review{}
	}
	return reviews, err
}

// StoreFilters returns the filter facets.
func (s *Service) StoreFilters(ctx context.Context) (*Facets, error) {
	return cache.GetOrCompute(ctx, s.cache, PrefixFilters+"facets", s.filtersTTL(), func(ctx context.Context) (*Facets, error) {
		var (
			f   = &Facets{Flags: models.AllFlags}
			err error
		)
		if f.Brands, err = s.brands.All(ctx); err != nil {
			return nil, err
		}
		if f.Categories, err = s.categories.All(ctx); err != nil {
			return nil, err
		}
		if f.Collections, err = s.collections.All(ctx); err != nil {
			return nil, err
		}
		if f.Scents, err = s.scents.All(ctx); err != nil {
			return nil, err
		}

		genders := map[models.Gender]bool{}
		concentrations := map[models.Concentration]bool{}
		first := true
		err = s.products.Each(ctx, database.Where(database.Eq(models.FieldActive, true)), func(p *models.Product) error {
			genders[p.Gender] = true
			concentrations[p.Concentration] = true
			if first || p.PriceFrom < f.Price.Min {
				f.Price.Min = p.PriceFrom
			}
			if first || p.PriceFrom > f.Price.Max {
				f.Price.Max = p.PriceFrom
			}
			first = false
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, g := range []models.Gender{models.GenderWomen, models.GenderMen, models.GenderUnisex} {
			if genders[g] {
				f.Genders = append(f.Genders, g)
			}
		}
		for _, c := range []models.Concentration{
			models.ConcentrationParfum, models.ConcentrationEDP, models.ConcentrationEDT,
			models.ConcentrationEDC, models.ConcentrationOil,
		} {
			if concentrations[c] {
				f.Concentrations = append(f.Concentrations, c)
			}
		}
		return f, nil
	})
}
