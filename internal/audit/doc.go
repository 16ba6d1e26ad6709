// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package audit records who changed what in the back-office.
//
// Admin handlers describe each mutation as an Event: the acting user, the
// action (product.delete, order.transition, ...), the affected document and
// whether the change succeeded. Events are kept in the audit_events
// collection of the document store and can be listed from the admin API.
//
// # Architecture
//
// Recording never blocks a request:
//
//	Logger.Log() -> buffered chan -> Logger.Serve() -> Store
//	                     |                 |
//	                Non-blocking     supervised goroutine
//
// When the buffer is full the event is dropped, counted in
// essence_audit_events_dropped_total and logged at warn level. Serve also
// prunes events older than the retention period on every cleanup tick, and
// drains the buffer before returning on shutdown.
//
// # Usage
//
//	store := audit.NewStore(db, nil)
//	logger := audit.NewLogger(store, audit.DefaultConfig(), nil)
//	tree.AddDataService(logger)
//
//	logger.Log(ctx, &audit.Event{
//		Action: audit.ActionProductDelete,
//		Actor:  audit.Actor{ID: userID, Email: email},
//		Target: audit.Target{Type: "product", ID: id},
//	})
package audit
