// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"errors"
	"strings"
	"testing"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
)

func TestMergeLines(t *testing.T) {
	got := mergeLines([]CheckoutItem{
		{ProductID: "b", SKU: "B-50", Quantity: 1},
		{ProductID: "a", SKU: "A-50", Quantity: 2},
		{ProductID: "b", SKU: "B-50", Quantity: 3},
		{ProductID: "a", SKU: "A-100", Quantity: 1},
	})
	want := []CheckoutItem{
		{ProductID: "a", SKU: "A-100", Quantity: 1},
		{ProductID: "a", SKU: "A-50", Quantity: 2},
		{ProductID: "b", SKU: "B-50", Quantity: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("mergeLines = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPlaceOrderGuest(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Santal Blanc", "SB-50", 90, 5)
	if _, err := f.svc.SetDiscount(f.ctx, p.ID, DiscountInput{Percent: 10}); err != nil {
		t.Fatal(err)
	}

	o, err := f.svc.PlaceOrder(f.ctx, "", CheckoutInput{
		Email:    "Guest@Example.com",
		Items:    []CheckoutItem{{ProductID: p.ID, SKU: "SB-50", Quantity: 2}},
		Shipping: testShipping(),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if o.Email != "guest@example.com" || o.UserID != "" {
		t.Errorf("buyer = %q / %q", o.Email, o.UserID)
	}
	if !strings.HasPrefix(o.Number, "ES-20260601-") || len(o.Number) != len("ES-20260601-ABCDEF") {
		t.Errorf("Number = %q", o.Number)
	}
	if o.Subtotal != 180 || o.Discount != 18 || o.ShippingFee != 0 || o.Total != 162 {
		t.Errorf("totals = %v - %v + %v = %v, want 180 - 18 + 0 = 162", o.Subtotal, o.Discount, o.ShippingFee, o.Total)
	}
	if o.Items[0].UnitPrice != 90 || o.Items[0].Name != "Santal Blanc" || o.Items[0].SizeML != 50 {
		t.Errorf("item = %+v", o.Items[0])
	}
	if o.Status != models.OrderPending || len(o.StatusHistory) != 1 || o.Currency != "EUR" {
		t.Errorf("status = %s, history = %v, currency = %s", o.Status, o.StatusHistory, o.Currency)
	}
	if o.Shipping.Country != "FR" {
		t.Errorf("Shipping.Country = %q", o.Shipping.Country)
	}

	if got := f.stock(t, p.ID, "SB-50"); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
	stored, _ := f.svc.GetProduct(f.ctx, p.ID)
	if stored.SoldCount != 2 {
		t.Errorf("SoldCount = %d, want 2", stored.SoldCount)
	}

	sent := f.mail.SentOfKind(notify.KindOrderConfirmation)
	if len(sent) != 1 || sent[0].To[0] != "guest@example.com" {
		t.Errorf("confirmation mails = %+v", sent)
	}
}

func TestPlaceOrderShippingFee(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Petit Bois", "PB-30", 40, 5)

	o, err := f.svc.PlaceOrder(f.ctx, "", CheckoutInput{
		Email:    "guest@example.com",
		Items:    []CheckoutItem{{ProductID: p.ID, SKU: "PB-30", Quantity: 1}},
		Shipping: testShipping(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ShippingFee != 4.90 || o.Total != 44.90 {
		t.Errorf("fee = %v, total = %v; want 4.90, 44.90", o.ShippingFee, o.Total)
	}
}

func TestPlaceOrderCustomerSavedAddress(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Cedar", "CE-50", 50, 5)
	u := f.customer(t, "camille@example.com")
	a, err := f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: *testShipping(), Label: "Home"})
	if err != nil {
		t.Fatal(err)
	}

	o, err := f.svc.PlaceOrder(f.ctx, u.ID, CheckoutInput{
		Items:     []CheckoutItem{{ProductID: p.ID, SKU: "CE-50", Quantity: 1}},
		AddressID: a.ID,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if o.UserID != u.ID || o.Email != u.Email || o.Shipping.City != "Grasse" {
		t.Errorf("order = %+v", o)
	}

	other := f.customer(t, "other@example.com")
	_, err = f.svc.PlaceOrder(f.ctx, other.ID, CheckoutInput{
		Items:     []CheckoutItem{{ProductID: p.ID, SKU: "CE-50", Quantity: 1}},
		AddressID: a.ID,
	})
	wantKind(t, err, apperr.KindValidation)
}

func TestPlaceOrderRejects(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Mimosa", "MI-50", 30, 2)
	off := f.product(t, ProductInput{
		Name: "Retired", Active: boolPtr(false),
		Variants: []VariantInput{{SizeML: 50, SKU: "RE-50", Price: 30, Stock: 9}},
	})

	tests := []struct {
		name string
		in   CheckoutInput
		kind apperr.Kind
	}{
		{"no items", CheckoutInput{Email: "g@example.com", Shipping: testShipping()}, apperr.KindValidation},
		{"guest without email", CheckoutInput{Items: []CheckoutItem{{ProductID: p.ID, SKU: "MI-50", Quantity: 1}}, Shipping: testShipping()}, apperr.KindValidation},
		{"no address", CheckoutInput{Email: "g@example.com", Items: []CheckoutItem{{ProductID: p.ID, SKU: "MI-50", Quantity: 1}}}, apperr.KindValidation},
		{"too many bottles", CheckoutInput{Email: "g@example.com", Shipping: testShipping(), Items: []CheckoutItem{
			{ProductID: p.ID, SKU: "MI-50", Quantity: 15}, {ProductID: p.ID, SKU: "MI-50", Quantity: 6},
		}}, apperr.KindValidation},
		{"unknown product", CheckoutInput{Email: "g@example.com", Shipping: testShipping(), Items: []CheckoutItem{{ProductID: "missing", SKU: "MI-50", Quantity: 1}}}, apperr.KindValidation},
		{"inactive product", CheckoutInput{Email: "g@example.com", Shipping: testShipping(), Items: []CheckoutItem{{ProductID: off.ID, SKU: "RE-50", Quantity: 1}}}, apperr.KindValidation},
		{"unknown variant", CheckoutInput{Email: "g@example.com", Shipping: testShipping(), Items: []CheckoutItem{{ProductID: p.ID, SKU: "MI-100", Quantity: 1}}}, apperr.KindValidation},
		{"out of stock", CheckoutInput{Email: "g@example.com", Shipping: testShipping(), Items: []CheckoutItem{{ProductID: p.ID, SKU: "MI-50", Quantity: 3}}}, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(f.ctx, "", tt.in)
			wantKind(t, err, tt.kind)
		})
	}
	if got := f.stock(t, p.ID, "MI-50"); got != 2 {
		t.Errorf("stock after rejected orders = %d, want 2", got)
	}
}

func TestPlaceOrderReleasesStockOnFailure(t *testing.T) {
	f := newFixture(t)
	a := f.simpleProduct(t, "Plenty", "PL-50", 20, 10)
	b := f.simpleProduct(t, "Scarce", "SC-50", 20, 1)

	_, err := f.svc.PlaceOrder(f.ctx, "", CheckoutInput{
		Email:    "g@example.com",
		Shipping: testShipping(),
		Items: []CheckoutItem{
			{ProductID: a.ID, SKU: "PL-50", Quantity: 2},
			{ProductID: b.ID, SKU: "SC-50", Quantity: 2},
		},
	})
	wantKind(t, err, apperr.KindConflict)

	if got := f.stock(t, a.ID, "PL-50"); got != 10 {
		t.Errorf("Plenty stock = %d, want 10", got)
	}
	if got := f.stock(t, b.ID, "SC-50"); got != 1 {
		t.Errorf("Scarce stock = %d, want 1", got)
	}
	pa, _ := f.svc.GetProduct(f.ctx, a.ID)
	if pa.SoldCount != 0 {
		t.Errorf("Plenty SoldCount = %d, want 0", pa.SoldCount)
	}
}

func TestPlaceOrderMailFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = apperr.Upstream("mail", errors.New("connection refused"))
	p := f.simpleProduct(t, "Oakmoss", "OM-50", 80, 2)

	o, err := f.svc.PlaceOrder(f.ctx, "", CheckoutInput{
		Email:    "g@example.com",
		Shipping: testShipping(),
		Items:    []CheckoutItem{{ProductID: p.ID, SKU: "OM-50", Quantity: 1}},
	})
	if err != nil || o == nil {
		t.Fatalf("PlaceOrder = %v, %v; mail failure must not fail checkout", o, err)
	}
}
