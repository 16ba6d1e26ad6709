// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package models

import (
	"strings"
	"time"
)

// Gender a fragrance is marketed to.
type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
)

// Concentration of the fragrance oil.
type Concentration string

const (
	ConcentrationParfum Concentration = "parfum"
	ConcentrationEDP    Concentration = "edp"
	ConcentrationEDT    Concentration = "edt"
	ConcentrationEDC    Concentration = "edc"
	ConcentrationOil    Concentration = "oil"
)

// Flag names a computed product flag.
type Flag string

const (
	FlagTrending   Flag = "trending"
	FlagBestseller Flag = "bestseller"
	FlagTopRated   Flag = "top_rated"
	FlagNew        Flag = "new"
)

// AllFlags in display order.
var AllFlags = []Flag{FlagNew, FlagTrending, FlagBestseller, FlagTopRated}

// Valid reports whether f is a known flag.
func (f Flag) Valid() bool {
	switch f {
	case FlagTrending, FlagBestseller, FlagTopRated, FlagNew:
		return true
	}
	return false
}

// Field is the store field holding the flag.
func (f Flag) Field() string {
	return "flags." + string(f)
}

// Product fields used in queries.
const (
	FieldName          = "name"
	FieldSlug          = "slug"
	FieldActive        = "active"
	FieldPosition      = "position"
	FieldBrandID       = "brand_id"
	FieldCategoryIDs   = "category_ids"
	FieldCollectionIDs = "collection_ids"
	FieldScentIDs      = "scent_ids"
	FieldGender        = "gender"
	FieldConcentration = "concentration"
	FieldPriceFrom     = "price_from"
	FieldRatingAvg     = "rating_avg"
	FieldRatingCount   = "rating_count"
	FieldSoldCount     = "sold_count"
	FieldSearchText    = "search_text"
)

// Variant is one bottle size of a product.
type Variant struct {
	SizeML int     `json:"size_ml" bson:"size_ml"`
	SKU    string  `json:"sku" bson:"sku"`
	Price  float64 `json:"price" bson:"price"`
	Stock  int     `json:"stock" bson:"stock"`
}

// ProductFlags are recomputed by the flag jobs.
type ProductFlags struct {
	Trending   bool `json:"trending" bson:"trending"`
	Bestseller bool `json:"bestseller" bson:"bestseller"`
	TopRated   bool `json:"top_rated" bson:"top_rated"`
	New        bool `json:"new" bson:"new"`
}

// Get returns the value of f.
func (pf ProductFlags) Get(f Flag) bool {
	switch f {
	case FlagTrending:
		return pf.Trending
	case FlagBestseller:
		return pf.Bestseller
	case FlagTopRated:
		return pf.TopRated
	case FlagNew:
		return pf.New
	}
	return false
}

// Set assigns f.
func (pf *ProductFlags) Set(f Flag, v bool) {
	switch f {
	case FlagTrending:
		pf.Trending = v
	case FlagBestseller:
		pf.Bestseller = v
	case FlagTopRated:
		pf.TopRated = v
	case FlagNew:
		pf.New = v
	}
}

// Product is a fragrance with one or more bottle sizes.
type Product struct {
	Meta            `bson:",inline"`
	Name            string        `json:"name" bson:"name"`
	Slug            string        `json:"slug" bson:"slug"`
	Description     string        `json:"description" bson:"description"`
	BrandID         string        `json:"brand_id" bson:"brand_id"`
	CategoryIDs     []string      `json:"category_ids" bson:"category_ids"`
	CollectionIDs   []string      `json:"collection_ids" bson:"collection_ids"`
	ScentIDs        []string      `json:"scent_ids" bson:"scent_ids"`
	Gender          Gender        `json:"gender" bson:"gender"`
	Concentration   Concentration `json:"concentration" bson:"concentration"`
	Variants        []Variant     `json:"variants" bson:"variants"`
	Images          []string      `json:"images" bson:"images"`
	DiscountPercent int           `json:"discount_percent" bson:"discount_percent"`
	Active          bool          `json:"active" bson:"active"`
	Flags           ProductFlags  `json:"flags" bson:"flags"`
	RatingAvg       float64       `json:"rating_avg" bson:"rating_avg"`
	RatingCount     int           `json:"rating_count" bson:"rating_count"`
	SoldCount       int           `json:"sold_count" bson:"sold_count"`

	// PriceFrom is the lowest variant price after discount. Kept in sync by
	// Normalize so price filters and sorts work on a scalar field.
	PriceFrom float64 `json:"price_from" bson:"price_from"`
	// SearchText is the lowercased name and description for text search.
	SearchText string `json:"-" bson:"search_text"`
}

// Normalize recomputes derived fields.
func (p *Product) Normalize() {
	p.PriceFrom = 0
	for i, v := range p.Variants {
		price := p.DiscountedPrice(v.Price)
		if i == 0 || price < p.PriceFrom {
			p.PriceFrom = price
		}
	}
	p.SearchText = strings.ToLower(p.Name + " " + p.Description)
}

// DiscountedPrice applies the product discount to price.
func (p *Product) DiscountedPrice(price float64) float64 {
	if p.DiscountPercent <= 0 {
		return RoundMoney(price)
	}
	return RoundMoney(price * float64(100-p.DiscountPercent) / 100)
}

// Variant returns the variant with the given SKU.
func (p *Product) Variant(sku string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// TotalStock sums stock over all variants.
func (p *Product) TotalStock() int {
	n := 0
	for _, v := range p.Variants {
		n += v.Stock
	}
	return n
}

// Taxon holds the fields shared by brands, categories, collections and scents.
type Taxon struct {
	Name        string `json:"name" bson:"name"`
	Slug        string `json:"slug" bson:"slug"`
	Description string `json:"description" bson:"description"`
	ImageURL    string `json:"image_url" bson:"image_url"`
	Active      bool   `json:"active" bson:"active"`
	Position    int    `json:"position" bson:"position"`
}

// TaxonFields gives generic code access to the embedded Taxon.
func (t *Taxon) TaxonFields() *Taxon { return t }

// Brand is a fragrance house.
type Brand struct {
	Meta    `bson:",inline"`
	Taxon   `bson:",inline"`
	Country string `json:"country" bson:"country"`
}

// Category groups products by type (e.g. "Eau de Parfum", "Gift Sets").
type Category struct {
	Meta  `bson:",inline"`
	Taxon `bson:",inline"`
}

// Collection is a curated set (e.g. "Summer 2026").
type Collection struct {
	Meta  `bson:",inline"`
	Taxon `bson:",inline"`
}

// Scent is an olfactory note or accord.
type Scent struct {
	Meta   `bson:",inline"`
	Taxon  `bson:",inline"`
	Family string `json:"family" bson:"family"`
}

// Banner is a home page slide.
type Banner struct {
	Meta     `bson:",inline"`
	Title    string     `json:"title" bson:"title"`
	Subtitle string     `json:"subtitle" bson:"subtitle"`
	ImageURL string     `json:"image_url" bson:"image_url"`
	LinkURL  string     `json:"link_url" bson:"link_url"`
	Position int        `json:"position" bson:"position"`
	Active   bool       `json:"active" bson:"active"`
	StartsAt *time.Time `json:"starts_at,omitempty" bson:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty" bson:"ends_at,omitempty"`
}

// LiveAt reports whether the banner is shown at t.
func (b *Banner) LiveAt(t time.Time) bool {
	if !b.Active {
		return false
	}
	if b.StartsAt != nil && t.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !t.Before(*b.EndsAt) {
		return false
	}
	return true
}
