// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
)

var testEpoch = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	db, err := database.OpenBadgerInMemory()
	if err != nil {
		t.Fatalf("OpenBadgerInMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	clock := clockwork.NewFakeClockAt(testEpoch)
	return NewStore(db, clock), clock
}

// flush runs Serve with a cancelled context, which writes everything queued
// and returns.
func flush(t *testing.T, l *Logger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v, want context.Canceled", err)
	}
}

func TestLogger_Log(t *testing.T) {
	t.Parallel()
	store, clock := newTestStore(t)
	logger := NewLogger(store, DefaultConfig(), clock)

	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	logger.Log(ctx, &Event{
		Action: ActionProductDelete,
		Actor:  Actor{ID: "u1", Email: "admin@essence.test", Role: "admin"},
		Target: Target{Type: "product", ID: "p1"},
	})
	logger.Log(ctx, &Event{
		Action:  ActionOrderTransition,
		Outcome: OutcomeFailure,
		Actor:   Actor{ID: "u1"},
		Target:  Target{Type: "order", ID: "o1"},
		Detail:  "illegal transition",
	})
	flush(t, logger)

	page, err := logger.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2", page.Total)
	}

	byAction := map[Action]*Event{}
	for _, e := range page.Items {
		byAction[e.Action] = e
	}
	del := byAction[ActionProductDelete]
	if del == nil {
		t.Fatal("product.delete event missing")
	}
	if del.Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %q, want success by default", del.Outcome)
	}
	if del.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", del.RequestID)
	}
	if del.ID == "" || !del.CreatedAt.Equal(testEpoch) {
		t.Errorf("meta = %+v, want ID and CreatedAt stamped", del.Meta)
	}
	if byAction[ActionOrderTransition].Outcome != OutcomeFailure {
		t.Error("explicit failure outcome was overwritten")
	}
}

func TestLogger_Disabled(t *testing.T) {
	t.Parallel()
	store, clock := newTestStore(t)
	cfg := DefaultConfig()
	cfg.Enabled = false
	logger := NewLogger(store, cfg, clock)

	logger.Log(context.Background(), &Event{Action: ActionUserDelete})
	flush(t, logger)

	page, err := store.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("Total = %d, want 0 when disabled", page.Total)
	}
}

func TestLogger_NilIsNoop(t *testing.T) {
	t.Parallel()
	var logger *Logger
	if logger.Enabled() {
		t.Error("nil logger reports enabled")
	}
	logger.Log(context.Background(), &Event{Action: ActionJobRun})
}

func TestLogger_BufferFullDrops(t *testing.T) {
	store, clock := newTestStore(t)
	cfg := DefaultConfig()
	cfg.BufferSize = 1
	logger := NewLogger(store, cfg, clock)

	before := testutil.ToFloat64(metrics.AuditEventsDropped)
	logger.Log(context.Background(), &Event{Action: ActionCacheInvalidate})
	logger.Log(context.Background(), &Event{Action: ActionCacheInvalidate})
	if got := testutil.ToFloat64(metrics.AuditEventsDropped) - before; got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}

	flush(t, logger)
	page, err := store.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Total)
	}
}

func TestLogger_CleanupPrunesExpired(t *testing.T) {
	t.Parallel()
	store, clock := newTestStore(t)
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Retention = 24 * time.Hour
	logger := NewLogger(store, cfg, clock)

	if err := store.Save(ctx, &Event{Action: ActionProductCreate, Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clock.Advance(36 * time.Hour)
	if err := store.Save(ctx, &Event{Action: ActionProductUpdate, Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	logger.cleanup(ctx)

	page, err := store.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 1 || page.Items[0].Action != ActionProductUpdate {
		t.Errorf("remaining = %+v, want only the recent event", page.Items)
	}
}

func TestLogger_CleanupKeepsForeverWithoutRetention(t *testing.T) {
	t.Parallel()
	store, clock := newTestStore(t)
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Retention = 0
	logger := NewLogger(store, cfg, clock)

	if err := store.Save(ctx, &Event{Action: ActionProductCreate, Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clock.Advance(365 * 24 * time.Hour)
	logger.cleanup(ctx)

	page, err := store.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Total)
	}
}
