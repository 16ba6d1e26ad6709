// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package models

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Collection names.
const (
	CollectionProducts    = "products"
	CollectionBrands      = "brands"
	CollectionCategories  = "categories"
	CollectionCollections = "collections"
	CollectionScents      = "scents"
	CollectionBanners     = "banners"
	CollectionOrders      = "orders"
	CollectionUsers       = "users"
	CollectionAddresses   = "addresses"
	CollectionReviews     = "reviews"
	CollectionContacts    = "contact_messages"
)

// Fields shared by every document.
const (
	FieldID        = "_id"
	FieldVersion   = "version"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Meta is embedded in every stored document.
type Meta struct {
	ID        string    `json:"id" bson:"_id"`
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DocMeta gives stores access to the embedded Meta.
func (m *Meta) DocMeta() *Meta { return m }

// Document is implemented by pointers to every stored type.
type Document interface {
	DocMeta() *Meta
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
// "Eau de Parfum N°5" becomes "eau-de-parfum-n-5".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("é", "e", "è", "e", "ê", "e", "à", "a", "â", "a", "ô", "o", "ö", "o", "ü", "u", "ç", "c", "ñ", "n", "&", " and ").Replace(s)
	return strings.Trim(slugStrip.ReplaceAllString(s, "-"), "-")
}
