// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package models defines the documents Essence stores and the API envelope it
returns.

Every stored document embeds Meta, which carries the string ID (stored as
_id), a version counter used for optimistic concurrency, and timestamps.
Field names are the same in JSON and BSON; the only exception is the ID,
which is "id" over HTTP and "_id" in the store. Field names used in store
queries are the BSON names and are exported as Field* constants next to each
document type.

Document Categories:

 1. Catalog: Product (with Variant and ProductFlags), Brand, Category,
    Collection, Scent, Banner
 2. Sales: Order (with OrderItem and StatusChange)
 3. Customers: User, Address, Review, ContactMessage
 4. API: APIResponse, APIError, Metadata, Page

Money is float64 in the shop currency, rounded to cents with RoundMoney
whenever it is derived.
*/
package models
