// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package database is the document store behind the shop.

Two engines implement Store:

  - BadgerStore keeps BSON documents in an embedded BadgerDB. Queries scan
    the collection and evaluate filters in process. Unique indexes are kept
    as owner keys written in the same transaction as the document.
  - MongoStore talks to MongoDB through the official driver.

Both encode documents as BSON, so a field name in a Filter is the bson tag of
the model field and behaves the same on either engine.

# Optimistic Concurrency

Every document carries a version. Replace writes only when the stored version
equals the caller's copy and then increments it; otherwise it returns
ErrConflict. Repository.Mutate wraps the read-modify-write cycle and retries
on conflict:

	product, err := products.Mutate(ctx, id, func(p *models.Product) error {
	    p.Variants[0].Stock -= qty
	    return nil
	})

# Engine Selection

Manager opens the engine named by config.DatabaseConfig.Engine and is the
Store the rest of the application holds. GCService compacts Badger's value
log under the supervisor's data layer.
*/
package database
