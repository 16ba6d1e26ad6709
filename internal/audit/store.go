// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
)

// Store persists events in the document store.
type Store struct {
	events *database.Repository[*Event]
}

// NewStore binds the audit_events collection of db. A nil clock uses the
// wall clock.
func NewStore(db database.Store, clock clockwork.Clock) *Store {
	return &Store{
		events: database.NewRepository(db, CollectionEvents, func() *Event { return &Event{} }, clock),
	}
}

// Save inserts an event, assigning its ID and timestamp.
func (s *Store) Save(ctx context.Context, e *Event) error {
	if err := s.events.Create(ctx, e); err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// Query returns a page of events matching f, newest first.
func (s *Store) Query(ctx context.Context, f Filter) (models.Page[*Event], error) {
	q := database.Where()
	if f.Action != "" {
		q = q.And(database.Eq(FieldAction, string(f.Action)))
	}
	if f.ActorID != "" {
		q = q.And(database.Eq(FieldActorID, f.ActorID))
	}
	if f.TargetType != "" {
		q = q.And(database.Eq(FieldTarget, f.TargetType))
	}
	if f.Outcome != "" {
		q = q.And(database.Eq(FieldOutcome, string(f.Outcome)))
	}
	if !f.Since.IsZero() {
		q = q.And(database.Gte(models.FieldCreatedAt, f.Since))
	}

	size := f.PageSize
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return s.events.Page(ctx, q.OrderBy(models.FieldCreatedAt, true), f.Page, size)
}

// Prune deletes events written before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	old, err := s.events.List(ctx, database.Where(database.Lt(models.FieldCreatedAt, cutoff)))
	if err != nil {
		return 0, fmt.Errorf("list expired audit events: %w", err)
	}
	removed := 0
	for _, e := range old {
		if err := s.events.Delete(ctx, e.ID); err != nil && !database.IsNotFound(err) {
			return removed, fmt.Errorf("delete audit event %s: %w", e.ID, err)
		}
		removed++
	}
	return removed, nil
}
