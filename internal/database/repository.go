// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
)

// DefaultMutateAttempts bounds Mutate's read-modify-write retries.
const DefaultMutateAttempts = 5

// ErrNoChange may be returned by a Mutate function to skip the write.
var ErrNoChange = errors.New("no change")

// Repository is typed access to one collection. T is a pointer to a model,
// e.g. *models.Product.
type Repository[T models.Document] struct {
	store      Store
	collection string
	newDoc     func() T
	clock      clockwork.Clock
	attempts   int
}

// NewRepository binds collection. newDoc returns an empty document to decode
// into. A nil clock uses the wall clock.
func NewRepository[T models.Document](store Store, collection string, newDoc func() T, clock clockwork.Clock) *Repository[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Repository[T]{
		store:      store,
		collection: collection,
		newDoc:     newDoc,
		clock:      clock,
		attempts:   DefaultMutateAttempts,
	}
}

// Collection returns the collection name.
func (r *Repository[T]) Collection() string { return r.collection }

// now is truncated to BSON datetime precision so values read back compare
// equal to values written.
func (r *Repository[T]) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Millisecond)
}

// Create assigns an ID if missing, stamps timestamps and version 1, and
// inserts doc.
func (r *Repository[T]) Create(ctx context.Context, doc T) error {
	meta := doc.DocMeta()
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	now := r.now()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.Version = 1
	return r.store.Insert(ctx, r.collection, doc)
}

// Get loads a document by ID.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	doc := r.newDoc()
	if err := r.store.Get(ctx, r.collection, id, doc); err != nil {
		var zero T
		return zero, err
	}
	return doc, nil
}

// Update writes doc if nobody else has since it was read. On ErrConflict doc
// is unchanged.
func (r *Repository[T]) Update(ctx context.Context, doc T) error {
	meta := doc.DocMeta()
	prev := meta.UpdatedAt
	meta.UpdatedAt = r.now()
	if err := r.store.Replace(ctx, r.collection, doc); err != nil {
		meta.UpdatedAt = prev
		return err
	}
	return nil
}

// Delete removes a document.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection, id)
}

// List returns every document matching q.
func (r *Repository[T]) List(ctx context.Context, q Query) ([]T, error) {
	var out []T
	err := r.Each(ctx, q, func(doc T) error {
		out = append(out, doc)
		return nil
	})
	return out, err
}

// Each calls fn for every document matching q, stopping at the first error.
func (r *Repository[T]) Each(ctx context.Context, q Query, fn func(T) error) error {
	cur, err := r.store.Find(ctx, r.collection, q)
	if err != nil {
		return err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			logging.Warn().Err(err).Str("collection", r.collection).Msg("Failed to close cursor")
		}
	}()

	for cur.Next(ctx) {
		doc := r.newDoc()
		if err := cur.Decode(doc); err != nil {
			return fmt.Errorf("decode %s document: %w", r.collection, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return cur.Err()
}

// FindOne returns the first document matching q or ErrNotFound.
func (r *Repository[T]) FindOne(ctx context.Context, q Query) (T, error) {
	q.Skip = 0
	q.Limit = 1
	docs, err := r.List(ctx, q)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(docs) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return docs[0], nil
}

// Count counts documents matching q.
func (r *Repository[T]) Count(ctx context.Context, q Query) (int, error) {
	return r.store.Count(ctx, r.collection, q.Unpaged())
}

// Exists reports whether any document matches q.
func (r *Repository[T]) Exists(ctx context.Context, q Query) (bool, error) {
	_, err := r.FindOne(ctx, q)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Page returns one page of q together with the total match count.
func (r *Repository[T]) Page(ctx context.Context, q Query, page, size int) (models.Page[T], error) {
	total, err := r.Count(ctx, q)
	if err != nil {
		return models.Page[T]{}, err
	}
	if page < 1 {
		page = 1
	}
	items, err := r.List(ctx, q.Paginate(page, size))
	if err != nil {
		return models.Page[T]{}, err
	}
	return models.NewPage(items, total, page, size), nil
}

// Mutate loads id, applies fn and writes the result, retrying from a fresh
// read when another writer got there first. fn may run more than once and
// must not have side effects beyond doc. Returning ErrNoChange from fn ends
// the call without writing; any other error is returned as is.
func (r *Repository[T]) Mutate(ctx context.Context, id string, fn func(T) error) (T, error) {
	var zero T
	for attempt := 1; attempt <= r.attempts; attempt++ {
		doc, err := r.Get(ctx, id)
		if err != nil {
			return zero, err
		}
		if err := fn(doc); err != nil {
			if errors.Is(err, ErrNoChange) {
				return doc, nil
			}
			return zero, err
		}
		err = r.Update(ctx, doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, ErrConflict) {
			return zero, err
		}
		logging.Ctx(ctx).Debug().
			Str("collection", r.collection).
			Str("id", id).
			Int("attempt", attempt).
			Msg("Version conflict, retrying")
	}
	return zero, fmt.Errorf("%s/%s after %d attempts: %w", r.collection, id, r.attempts, ErrConflict)
}
