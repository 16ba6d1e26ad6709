// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package database

import (
	"context"
	"errors"

	"github.com/essence-shop/essence/internal/models"
)

// Engine names.
const (
	EngineBadger = "badger"
	EngineMongo  = "mongo"
)

// Sentinel errors returned by every Store.
var (
	// ErrNotFound means no document has the requested ID.
	ErrNotFound = errors.New("document not found")
	// ErrConflict means the stored version differs from the version being
	// replaced.
	ErrConflict = errors.New("document version conflict")
	// ErrDuplicate means an insert or replace would violate a unique index,
	// or the ID is taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrClosed means the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// Cursor iterates a Find result. Its method set matches *mongo.Cursor.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

// Index declares a field index. Only unique indexes are enforced by the
// embedded engine; MongoDB creates all of them.
type Index struct {
	Collection string
	Field      string
	Unique     bool
}

// Store is a collection-oriented document store.
//
// Documents are addressed by Meta.ID. Replace succeeds only when the stored
// version equals doc's version and then increments doc's version, which
// gives callers optimistic concurrency without locks.
type Store interface {
	Engine() string
	EnsureIndexes(ctx context.Context, indexes []Index) error

	Insert(ctx context.Context, collection string, doc models.Document) error
	Get(ctx context.Context, collection, id string, out models.Document) error
	Replace(ctx context.Context, collection string, doc models.Document) error
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, collection string, q Query) (Cursor, error)
	Count(ctx context.Context, collection string, q Query) (int, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefaultIndexes are created at startup.
var DefaultIndexes = []Index{
	{Collection: models.CollectionUsers, Field: models.FieldEmail, Unique: true},
	{Collection: models.CollectionOrders, Field: models.FieldNumber, Unique: true},
	{Collection: models.CollectionProducts, Field: models.FieldSlug, Unique: true},
	{Collection: models.CollectionProducts, Field: models.FieldActive},
	{Collection: models.CollectionOrders, Field: models.FieldUserID},
	{Collection: models.CollectionOrders, Field: models.FieldStatus},
	{Collection: models.CollectionReviews, Field: models.FieldProductID},
	{Collection: models.CollectionAddresses, Field: models.FieldUserID},
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
