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

// TaxonDoc is a pointer to a brand, category, collection or scent.
type TaxonDoc interface {
	models.Document
	TaxonFields() *models.Taxon
}

// TaxonInput creates or updates a taxon. Country applies to brands and
// Family to scents; both are ignored elsewhere.
type TaxonInput struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Slug        string `json:"slug" validate:"omitempty,slug,max=140"`
	Description string `json:"description" validate:"max=4000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=500"`
	Active      *bool  `json:"active"`
	Position    int    `json:"position" validate:"gte=0"`
	Country     string `json:"country" validate:"max=80"`
	Family      string `json:"family" validate:"max=80"`
	Version     int64  `json:"version" validate:"gte=0"`
}

// TaxonFilter lists taxa.
type TaxonFilter struct {
	ActiveOnly bool
	Page       int
	PageSize   int
}

// Taxonomy manages one collection of taxa. Slugs are unique within the
// collection and a taxon referenced by products cannot be deleted.
type Taxonomy[T TaxonDoc] struct {
	svc    *Service
	entity string
	// productField is the product field that references this taxonomy.
	productField string
	repo         *database.Repository[T]
	newDoc       func() T
	extra        func(T, TaxonInput)
}

func newTaxonomy[T TaxonDoc](s *Service, entity, collection, productField string, newDoc func() T, extra func(T, TaxonInput)) *Taxonomy[T] {
	return &Taxonomy[T]{
		svc:          s,
		entity:       entity,
		productField: productField,
		repo:         database.NewRepository(s.store, collection, newDoc, s.clock),
		newDoc:       newDoc,
		extra:        extra,
	}
}

// Entity names the taxon kind, e.g. "brand".
func (t *Taxonomy[T]) Entity() string { return t.entity }

func (t *Taxonomy[T]) apply(doc T, in TaxonInput) {
	tx := doc.TaxonFields()
	tx.Name = strings.TrimSpace(in.Name)
	tx.Slug = in.Slug
	if tx.Slug == "" {
		tx.Slug = models.Slugify(in.Name)
	}
	tx.Description = strings.TrimSpace(in.Description)
	tx.ImageURL = in.ImageURL
	tx.Active = boolOr(in.Active, true)
	tx.Position = in.Position
	if t.extra != nil {
		t.extra(doc, in)
	}
}

// ensureSlugFree rejects a slug used by another document of the collection.
func (t *Taxonomy[T]) ensureSlugFree(ctx context.Context, slug, selfID string) error {
	if slug == "" {
		return apperr.Field("slug", "slug cannot be derived from name, set it explicitly")
	}
	q := database.Where(database.Eq(models.FieldSlug, slug))
	if selfID != "" {
		q = q.And(database.Ne(models.FieldID, selfID))
	}
	taken, err := t.repo.Exists(ctx, q)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Field("slug", fmt.Sprintf("slug %q is already used by another %s", slug, t.entity))
	}
	return nil
}

// Create adds a taxon.
func (t *Taxonomy[T]) Create(ctx context.Context, in TaxonInput) (T, error) {
	var zero T
	if err := validation.Check(&in); err != nil {
		return zero, err
	}
	created := t.newDoc()
	t.apply(created, in)
	if err := t.ensureSlugFree(ctx, created.TaxonFields().Slug, ""); err != nil {
		return zero, err
	}
	if err := t.repo.Create(ctx, created); err != nil {
		return zero, storeErr(err, t.entity, "")
	}
	t.svc.invalidate(ctx, PrefixFilters, PrefixStore, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("entity", t.entity).Str("id", created.DocMeta().ID).Str("slug", created.TaxonFields().Slug).Msg("Taxon created")
	return created, nil
}

// Get loads a taxon by ID.
func (t *Taxonomy[T]) Get(ctx context.Context, id string) (T, error) {
	doc, err := t.repo.Get(ctx, id)
	return doc, storeErr(err, t.entity, id)
}

// GetBySlug loads a taxon by slug.
func (t *Taxonomy[T]) GetBySlug(ctx context.Context, slug string) (T, error) {
	doc, err := t.repo.FindOne(ctx, database.Where(database.Eq(models.FieldSlug, slug)))
	return doc, storeErr(err, t.entity, slug)
}

// Update replaces the editable fields of a taxon. A non-zero in.Version must
// match the stored version.
func (t *Taxonomy[T]) Update(ctx context.Context, id string, in TaxonInput) (T, error) {
	var zero T
	if err := validation.Check(&in); err != nil {
		return zero, err
	}
	doc, err := t.repo.Get(ctx, id)
	if err != nil {
		return zero, storeErr(err, t.entity, id)
	}
	if err := checkVersion(t.entity, doc.DocMeta().Version, in.Version); err != nil {
		return zero, err
	}
	t.apply(doc, in)
	if err := t.ensureSlugFree(ctx, doc.TaxonFields().Slug, id); err != nil {
		return zero, err
	}
	if err := t.repo.Update(ctx, doc); err != nil {
		return zero, storeErr(err, t.entity, id)
	}
	t.svc.invalidate(ctx, PrefixFilters, PrefixStore)
	return doc, nil
}

// Delete removes a taxon that no product references.
func (t *Taxonomy[T]) Delete(ctx context.Context, id string) error {
	if _, err := t.repo.Get(ctx, id); err != nil {
		return storeErr(err, t.entity, id)
	}
	used, err := t.svc.products.Count(ctx, database.Where(database.Eq(t.productField, id)))
	if err != nil {
		return err
	}
	if used > 0 {
		return apperr.Conflict(fmt.Sprintf("%s is used by %d product(s), reassign them first", t.entity, used))
	}
	if err := t.repo.Delete(ctx, id); err != nil {
		return storeErr(err, t.entity, id)
	}
	t.svc.invalidate(ctx, PrefixFilters, PrefixStore, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("entity", t.entity).Str("id", id).Msg("Taxon deleted")
	return nil
}

// List returns taxa ordered by position.
func (t *Taxonomy[T]) List(ctx context.Context, f TaxonFilter) (models.Page[T], error) {
	page, size := t.svc.pageBounds(f.Page, f.PageSize)
	q := database.Where().OrderBy(models.FieldPosition, false)
	if f.ActiveOnly {
		q = q.And(database.Eq(models.FieldActive, true))
	}
	return t.repo.Page(ctx, q, page, size)
}

// All returns every active taxon ordered by position, for filter facets.
func (t *Taxonomy[T]) All(ctx context.Context) ([]T, error) {
	return t.repo.List(ctx, database.Where(database.Eq(models.FieldActive, true)).OrderBy(models.FieldPosition, false))
}

// Exists reports whether id names a taxon.
func (t *Taxonomy[T]) Exists(ctx context.Context, id string) (bool, error) {
	return t.repo.Exists(ctx, database.Where(database.Eq(models.FieldID, id)))
}

// Count counts all taxa.
func (t *Taxonomy[T]) Count(ctx context.Context) (int, error) {
	return t.repo.Count(ctx, database.Where())
}
