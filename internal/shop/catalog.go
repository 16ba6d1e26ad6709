// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// VariantInput is one bottle size of a ProductInput.
type VariantInput struct {
	SizeML int     `json:"size_ml" validate:"gt=0,lte=1000"`
	SKU    string  `json:"sku" validate:"required,sku"`
	Price  float64 `json:"price" validate:"gt=0"`
	Stock  int     `json:"stock" validate:"gte=0"`
}

// ProductInput creates or updates a product. Flags, ratings and sales are
// computed and cannot be set.
type ProductInput struct {
	Name            string               `json:"name" validate:"required,notblank,max=200"`
	Slug            string               `json:"slug" validate:"omitempty,slug,max=220"`
	Description     string               `json:"description" validate:"max=10000"`
	BrandID         string               `json:"brand_id" validate:"max=64"`
	CategoryIDs     []string             `json:"category_ids" validate:"max=20,dive,required"`
	CollectionIDs   []string             `json:"collection_ids" validate:"max=20,dive,required"`
	ScentIDs        []string             `json:"scent_ids" validate:"max=30,dive,required"`
	Gender          models.Gender        `json:"gender" validate:"required,oneof=men women unisex"`
	Concentration   models.Concentration `json:"concentration" validate:"required,oneof=parfum edp edt edc oil"`
	Variants        []VariantInput       `json:"variants" validate:"required,min=1,max=10,dive"`
	Images          []string             `json:"images" validate:"max=20,dive,url"`
	DiscountPercent int                  `json:"discount_percent" validate:"gte=0,lte=90"`
	Active          *bool                `json:"active"`
	Version         int64                `json:"version" validate:"gte=0"`
}

// DiscountInput sets a product discount.
type DiscountInput struct {
	Percent int   `json:"percent" validate:"gte=0,lte=90"`
	Version int64 `json:"version" validate:"gte=0"`
}

// StockInput adjusts the stock of one variant. Exactly one of Delta and Set
// applies: Set when non-nil, Delta otherwise.
type StockInput struct {
	SKU   string `json:"sku" validate:"required,sku"`
	Delta int    `json:"delta"`
	Set   *int   `json:"set" validate:"omitempty,gte=0"`
}

// Product sort orders.
const (
	SortNewest     = "newest"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortRating     = "rating"
	SortBestseller = "bestseller"
	SortName       = "name"
)

// ProductFilter selects products. IDs filter by reference; zero values are
// ignored.
type ProductFilter struct {
	BrandID       string               `json:"brand_id,omitempty"`
	CategoryID    string               `json:"category_id,omitempty"`
	CollectionID  string               `json:"collection_id,omitempty"`
	ScentID       string               `json:"scent_id,omitempty"`
	Gender        models.Gender        `json:"gender,omitempty" validate:"omitempty,oneof=men women unisex"`
	Concentration models.Concentration `json:"concentration,omitempty" validate:"omitempty,oneof=parfum edp edt edc oil"`
	MinPrice      float64              `json:"min_price,omitempty" validate:"gte=0"`
	MaxPrice      float64              `json:"max_price,omitempty" validate:"gte=0"`
	Flag          models.Flag          `json:"flag,omitempty" validate:"omitempty,oneof=trending bestseller top_rated new"`
	Search        string               `json:"q,omitempty" validate:"max=100"`
	Active        *bool                `json:"active,omitempty"`
	Sort          string               `json:"sort,omitempty" validate:"omitempty,oneof=newest price_asc price_desc rating bestseller name"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
}

// query builds the store query for f.
func (f ProductFilter) query() database.Query {
	q := database.Where()
	if f.BrandID != "" {
		q = q.And(database.Eq(models.FieldBrandID, f.BrandID))
	}
	if f.CategoryID != "" {
		q = q.And(database.Eq(models.FieldCategoryIDs, f.CategoryID))
	}
	if f.CollectionID != "" {
		q = q.And(database.Eq(models.FieldCollectionIDs, f.CollectionID))
	}
	if f.ScentID != "" {
		q = q.And(database.Eq(models.FieldScentIDs, f.ScentID))
	}
	if f.Gender != "" {
		q = q.And(database.Eq(models.FieldGender, string(f.Gender)))
	}
	if f.Concentration != "" {
		q = q.And(database.Eq(models.FieldConcentration, string(f.Concentration)))
	}
	if f.MinPrice > 0 {
		q = q.And(database.Gte(models.FieldPriceFrom, f.MinPrice))
	}
	if f.MaxPrice > 0 {
		q = q.And(database.Lte(models.FieldPriceFrom, f.MaxPrice))
	}
	if f.Flag != "" {
		q = q.And(database.Eq(f.Flag.Field(), true))
	}
	for _, word := range strings.Fields(strings.ToLower(f.Search)) {
		q = q.And(database.Contains(models.FieldSearchText, word))
	}
	if f.Active != nil {
		q = q.And(database.Eq(models.FieldActive, *f.Active))
	}

	switch f.Sort {
	case SortPriceAsc:
		q = q.OrderBy(models.FieldPriceFrom, false)
	case SortPriceDesc:
		q = q.OrderBy(models.FieldPriceFrom, true)
	case SortRating:
		q = q.OrderBy(models.FieldRatingAvg, true)
	case SortBestseller:
		q = q.OrderBy(models.FieldSoldCount, true)
	case SortName:
		q = q.OrderBy(models.FieldName, false)
	default:
		q = q.OrderBy(models.FieldCreatedAt, true)
	}
	return q
}

// checkRefs verifies that referenced taxa exist.
func (s *Service) checkRefs(ctx context.Context, in *ProductInput) error {
	type ref struct {
		field  string
		ids    []string
		exists func(context.Context, string) (bool, error)
	}
	brandIDs := []string{}
	if in.BrandID != "" {
		brandIDs = append(brandIDs, in.BrandID)
	}
	refs := []ref{
		{"brand_id", brandIDs, s.brands.Exists},
		{"category_ids", in.CategoryIDs, s.categories.Exists},
		{"collection_ids", in.CollectionIDs, s.collections.Exists},
		{"scent_ids", in.ScentIDs, s.scents.Exists},
	}
	fields := map[string]string{}
	for _, r := range refs {
		for i, id := range r.ids {
			ok, err := r.exists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				key := r.field
				if r.field != "brand_id" {
					key = fmt.Sprintf("%s[%d]", r.field, i)
				}
				fields[key] = fmt.Sprintf("%s %q does not exist", strings.TrimSuffix(strings.TrimSuffix(r.field, "_ids"), "_id"), id)
			}
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("Unknown references", fields)
	}
	return nil
}

func checkVariants(vs []VariantInput) error {
	seen := make(map[string]int, len(vs))
	for i, v := range vs {
		if j, dup := seen[v.SKU]; dup {
			return apperr.Field(fmt.Sprintf("variants[%d].sku", i), fmt.Sprintf("sku %s repeats variants[%d]", v.SKU, j))
		}
		seen[v.SKU] = i
	}
	return nil
}

func applyProduct(p *models.Product, in *ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = in.Slug
	if p.Slug == "" {
		p.Slug = models.Slugify(in.Name)
	}
	p.Description = strings.TrimSpace(in.Description)
	p.BrandID = in.BrandID
	p.CategoryIDs = nonNil(in.CategoryIDs)
	p.CollectionIDs = nonNil(in.CollectionIDs)
	p.ScentIDs = nonNil(in.ScentIDs)
	p.Gender = in.Gender
	p.Concentration = in.Concentration
	p.Variants = make([]models.Variant, len(in.Variants))
	for i, v := range in.Variants {
		p.Variants[i] = models.Variant{SizeML: v.SizeML, SKU: v.SKU, Price: models.RoundMoney(v.Price), Stock: v.Stock}
	}
	p.Images = nonNil(in.Images)
	p.DiscountPercent = in.DiscountPercent
	p.Active = boolOr(in.Active, true)
	p.Normalize()
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func (s *Service) prepareProduct(ctx context.Context, in *ProductInput, selfID string) error {
	if err := validation.Check(in); err != nil {
		return err
	}
	if err := checkVariants(in.Variants); err != nil {
		return err
	}
	if err := s.checkRefs(ctx, in); err != nil {
		return err
	}
	slug := in.Slug
	if slug == "" {
		slug = models.Slugify(in.Name)
	}
	if slug == "" {
		return apperr.Field("slug", "slug cannot be derived from name, set it explicitly")
	}
	q := database.Where(database.Eq(models.FieldSlug, slug))
	if selfID != "" {
		q = q.And(database.Ne(models.FieldID, selfID))
	}
	taken, err := s.products.Exists(ctx, q)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Field("slug", fmt.Sprintf("slug %q is already used by another product", slug))
	}
	return nil
}

// CreateProduct adds a product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.prepareProduct(ctx, &in, ""); err != nil {
		return nil, err
	}
	p := &models.Product{}
	applyProduct(p, &in)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, storeErr(err, "product", "")
	}
	s.invalidate(ctx, PrefixStore, PrefixFilters, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("product_id", p.ID).Str("slug", p.Slug).Msg("Product created")
	return p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := s.prepareProduct(ctx, &in, id); err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product", id)
	}
	if err := checkVersion("product", p.Version, in.Version); err != nil {
		return nil, err
	}
	applyProduct(p, &in)
	if err := s.products.Update(ctx, p); err != nil {
		return nil, storeErr(err, "product", id)
	}
	s.invalidate(ctx, PrefixStore, PrefixFilters, PrefixDashboard)
	return p, nil
}

// DeleteProduct removes a product and its reviews. Orders keep their
// snapshot of the product.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.products.Get(ctx, id); err != nil {
		return storeErr(err, "product", id)
	}
	// Reviews go first so a failure leaves the product in place and the
	// delete can be retried.
	reviews, err := s.reviews.List(ctx, database.Where(database.Eq(models.FieldProductID, id)))
	if err != nil {
		return err
	}
	for _, r := range reviews {
		if err := s.reviews.Delete(ctx, r.ID); err != nil && !database.IsNotFound(err) {
			return err
		}
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return storeErr(err, "product", id)
	}
	s.invalidate(ctx, PrefixStore, PrefixFilters, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("product_id", id).Int("reviews_deleted", len(reviews)).Msg("Product deleted")
	return nil
}

// GetProduct loads a product by ID, active or not.
func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.Get(ctx, id)
	return p, storeErr(err, "product", id)
}

// ListProducts returns a page of products matching f.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) (models.Page[*models.Product], error) {
	if err := validation.Check(&f); err != nil {
		return models.Page[*models.Product]{}, err
	}
	page, size := s.pageBounds(f.Page, f.PageSize)
	return s.products.Page(ctx, f.query(), page, size)
}

// SetDiscount changes the discount of a product.
func (s *Service) SetDiscount(ctx context.Context, id string, in DiscountInput) (*models.Product, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	p, err := s.products.Mutate(ctx, id, func(p *models.Product) error {
		if err := checkVersion("product", p.Version, in.Version); err != nil {
			return err
		}
		if p.DiscountPercent == in.Percent {
			return database.ErrNoChange
		}
		p.DiscountPercent = in.Percent
		p.Normalize()
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "product", id)
	}
	s.invalidate(ctx, PrefixStore, PrefixFilters)
	return p, nil
}

// AdjustStock changes the stock of one variant. Stock never goes below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, in StockInput) (*models.Product, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	p, err := s.products.Mutate(ctx, id, func(p *models.Product) error {
		v, ok := p.Variant(in.SKU)
		if !ok {
			return apperr.Field("sku", fmt.Sprintf("product has no variant %s", in.SKU))
		}
		next := v.Stock + in.Delta
		if in.Set != nil {
			next = *in.Set
		}
		if next < 0 {
			return apperr.Field("delta", fmt.Sprintf("stock of %s would become %d", in.SKU, next))
		}
		if next == v.Stock {
			return database.ErrNoChange
		}
		v.Stock = next
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "product", id)
	}
	s.invalidate(ctx, PrefixStore, PrefixDashboard)
	return p, nil
}
