// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"testing"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/models"
)

func TestStoreHomeCaching(t *testing.T) {
	f := newFixture(t)

	home, err := f.svc.StoreHome(f.ctx)
	if err != nil {
		t.Fatalf("StoreHome: %v", err)
	}
	if len(home.Banners) != 0 || len(home.Rails) != len(models.AllFlags) {
		t.Fatalf("StoreHome = %+v", home)
	}

	// Written behind the service's back: the cached page is served until the
	// entry expires.
	b := &models.Banner{Title: "Winter", ImageURL: "https://cdn.essence.test/w.jpg", Active: true}
	if err := f.svc.banners.Create(f.ctx, b); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(29 * time.Second)
	home, _ = f.svc.StoreHome(f.ctx)
	if len(home.Banners) != 0 {
		t.Error("StoreHome recomputed before the TTL elapsed")
	}
	f.clock.Advance(2 * time.Second)
	home, _ = f.svc.StoreHome(f.ctx)
	if len(home.Banners) != 1 {
		t.Errorf("StoreHome after TTL: %d banners, want 1", len(home.Banners))
	}

	// Mutations through the service invalidate immediately.
	if _, err := f.svc.CreateBanner(f.ctx, BannerInput{Title: "Spring", ImageURL: "https://cdn.essence.test/s.jpg"}); err != nil {
		t.Fatal(err)
	}
	home, _ = f.svc.StoreHome(f.ctx)
	if len(home.Banners) != 2 {
		t.Errorf("StoreHome after CreateBanner: %d banners, want 2", len(home.Banners))
	}
}

func TestStoreHomeRails(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Neroli", "NE-50", 48, 5)
	_, err := f.svc.products.Mutate(f.ctx, p.ID, func(p *models.Product) error {
		p.Flags.Set(models.FlagBestseller, true)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	home, err := f.svc.StoreHome(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, rail := range home.Rails {
		want := 0
		if rail.Flag == models.FlagBestseller {
			want = 1
		}
		if len(rail.Products) != want {
			t.Errorf("rail %s has %d products, want %d", rail.Flag, len(rail.Products), want)
		}
	}
}

func TestStoreProduct(t *testing.T) {
	f := newFixture(t)
	b := f.brand(t, "Maison Fleur")
	p := f.product(t, ProductInput{
		Name: "Jasmine Night", BrandID: b.ID,
		Variants: []VariantInput{{SizeML: 50, SKU: "JN-50", Price: 75, Stock: 5}},
	})
	hidden := f.product(t, ProductInput{
		Name: "Prototype", Active: boolPtr(false),
		Variants: []VariantInput{{SizeML: 50, SKU: "PR-50", Price: 75, Stock: 5}},
	})

	detail, err := f.svc.StoreProduct(f.ctx, p.Slug)
	if err != nil {
		t.Fatalf("StoreProduct: %v", err)
	}
	if detail.Product.ID != p.ID || detail.Brand == nil || detail.Brand.ID != b.ID || len(detail.Reviews) != 0 {
		t.Errorf("StoreProduct = %+v", detail)
	}

	_, err = f.svc.StoreProduct(f.ctx, hidden.Slug)
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.svc.StoreProduct(f.ctx, "no-such-perfume")
	wantKind(t, err, apperr.KindNotFound)
}

func TestStoreProductsAndSearch(t *testing.T) {
	f := newFixture(t)
	f.simpleProduct(t, "Green Tea", "GT-50", 30, 5)
	f.simpleProduct(t, "Black Tea", "BT-50", 40, 5)
	f.product(t, ProductInput{
		Name: "Tea Draft", Active: boolPtr(false),
		Variants: []VariantInput{{SizeML: 50, SKU: "TD-50", Price: 10, Stock: 5}},
	})

	page, err := f.svc.StoreProducts(f.ctx, ProductFilter{Active: boolPtr(false)})
	if err != nil {
		t.Fatalf("StoreProducts: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("StoreProducts total = %d, want 2 (inactive hidden)", page.Total)
	}

	found, err := f.svc.StoreSearch(f.ctx, "tea green", 1, 10)
	if err != nil {
		t.Fatalf("StoreSearch: %v", err)
	}
	if found.Total != 1 || found.Items[0].Name != "Green Tea" {
		t.Errorf("StoreSearch = %+v", found)
	}

	_, err = f.svc.StoreSearch(f.ctx, "   ", 1, 10)
	wantKind(t, err, apperr.KindValidation)
}

func TestStoreFilters(t *testing.T) {
	f := newFixture(t)
	f.brand(t, "Atelier Sud")
	f.product(t, ProductInput{
		Name: "Sea Salt", Gender: models.GenderUnisex, Concentration: models.ConcentrationEDC,
		Variants: []VariantInput{{SizeML: 100, SKU: "SS-100", Price: 38, Stock: 5}},
	})
	f.product(t, ProductInput{
		Name: "Velvet Rose", Gender: models.GenderWomen, Concentration: models.ConcentrationParfum,
		Variants: []VariantInput{{SizeML: 30, SKU: "VR-30", Price: 110, Stock: 5}, {SizeML: 10, SKU: "VR-10", Price: 45, Stock: 5}},
	})

	facets, err := f.svc.StoreFilters(f.ctx)
	if err != nil {
		t.Fatalf("StoreFilters: %v", err)
	}
	if len(facets.Brands) != 1 {
		t.Errorf("Brands = %d, want 1", len(facets.Brands))
	}
	if len(facets.Genders) != 2 || facets.Genders[0] != models.GenderWomen {
		t.Errorf("Genders = %v", facets.Genders)
	}
	if len(facets.Concentrations) != 2 || facets.Concentrations[0] != models.ConcentrationParfum {
		t.Errorf("Concentrations = %v", facets.Concentrations)
	}
	if facets.Price.Min != 38 || facets.Price.Max != 45 {
		t.Errorf("Price = %+v, want 38..45", facets.Price)
	}
}
