// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package audit

import (
	"time"

	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
)

// CollectionEvents holds audit events.
const CollectionEvents = "audit_events"

// Stored field names used in queries.
const (
	FieldAction  = "action"
	FieldActorID = "actor.id"
	FieldTarget  = "target.type"
	FieldOutcome = "outcome"
)

// Indexes are created at startup alongside database.DefaultIndexes.
var Indexes = []database.Index{
	{Collection: CollectionEvents, Field: FieldAction},
	{Collection: CollectionEvents, Field: FieldActorID},
	{Collection: CollectionEvents, Field: models.FieldCreatedAt},
}

// Action names a back-office operation.
type Action string

const (
	ActionProductCreate   Action = "product.create"
	ActionProductUpdate   Action = "product.update"
	ActionProductDelete   Action = "product.delete"
	ActionProductDiscount Action = "product.discount"
	ActionProductStock    Action = "product.stock"

	ActionOrderTransition Action = "order.transition"

	ActionUserUpdate Action = "user.update"
	ActionUserDelete Action = "user.delete"

	ActionReviewModerate Action = "review.moderate"
	ActionReviewDelete   Action = "review.delete"

	ActionJobRun          Action = "job.run"
	ActionFlagRecompute   Action = "flag.recompute"
	ActionCacheInvalidate Action = "cache.invalidate"
)

// Outcome is the result of the audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Actor is the user who performed the action.
type Actor struct {
	ID    string `json:"id" bson:"id"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Role  string `json:"role,omitempty" bson:"role,omitempty"`
}

// Target is the document the action applied to. ID is empty for actions
// on a whole resource, such as a cache invalidation.
type Target struct {
	Type string `json:"type" bson:"type"`
	ID   string `json:"id,omitempty" bson:"id,omitempty"`
}

// Event is one audit record. CreatedAt is the time it was written.
type Event struct {
	models.Meta `bson:",inline"`

	Action    Action            `json:"action" bson:"action"`
	Outcome   Outcome           `json:"outcome" bson:"outcome"`
	Actor     Actor             `json:"actor" bson:"actor"`
	Target    Target            `json:"target" bson:"target"`
	RequestID string            `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Detail    string            `json:"detail,omitempty" bson:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Filter selects events for Store.Query. Zero fields match everything.
type Filter struct {
	Action     Action
	ActorID    string
	TargetType string
	Outcome    Outcome
	Since      time.Time
	Page       int
	PageSize   int
}

// Page size bounds for Store.Query.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)
