// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package flags

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
)

var testEpoch = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	svc   *shop.Service
	clock *clockwork.FakeClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store, err := database.OpenBadgerInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	if err := store.EnsureIndexes(ctx, database.DefaultIndexes); err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClockAt(testEpoch)
	svc := shop.New(shop.Deps{
		Store:  store,
		Clock:  clock,
		Mailer: &notify.MemoryMailer{},
		Shop:   config.ShopConfig{ShippingFee: 5, FreeShippingThreshold: 100, MaxItemsPerOrder: 50},
	})
	return &env{ctx: ctx, svc: svc, clock: clock}
}

func (e *env) product(t *testing.T, name string) *models.Product {
	t.Helper()
	p, err := e.svc.CreateProduct(e.ctx, shop.ProductInput{
		Name:          name,
		Gender:        models.GenderUnisex,
		Concentration: models.ConcentrationEDP,
		Variants:      []shop.VariantInput{{SizeML: 50, SKU: "SKU-" + strings.ToUpper(models.Slugify(name)), Price: 10, Stock: 100}},
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	e.clock.Advance(time.Minute)
	return p
}

func (e *env) order(t *testing.T, p *models.Product, qty int) *models.Order {
	t.Helper()
	o, err := e.svc.PlaceOrder(e.ctx, "", shop.CheckoutInput{
		Email: "guest@example.com",
		Items: []shop.CheckoutItem{{ProductID: p.ID, SKU: p.Variants[0].SKU, Quantity: qty}},
		Shipping: &shop.PostalInput{
			FullName: "Guest", Phone: "0600000000", Line1: "1 Main St",
			City: "Nice", PostalCode: "06000", Country: "FR",
		},
	})
	if err != nil {
		t.Fatalf("order %s: %v", p.Name, err)
	}
	e.clock.Advance(time.Minute)
	return o
}

func (e *env) flagged(t *testing.T, flag models.Flag) []string {
	t.Helper()
	products, err := e.svc.Products().List(e.ctx, database.Where(database.Eq(flag.Field(), true)))
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBestsellers(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "Amber")
	b := e.product(t, "Birch")
	c := e.product(t, "Cassis")
	e.product(t, "Datura")
	e.order(t, a, 5)
	e.order(t, b, 3)
	e.order(t, c, 1)

	r := New(e.svc, Config{TopN: 2})
	res, err := r.Run(e.ctx, models.FlagBestseller)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Selected != 2 || res.Set != 2 || res.Cleared != 0 {
		t.Errorf("Result = %+v", res)
	}
	if got := e.flagged(t, models.FlagBestseller); !equalNames(got, []string{"Amber", "Birch"}) {
		t.Errorf("bestsellers = %v", got)
	}

	e.order(t, c, 10)
	res, err = r.Run(e.ctx, models.FlagBestseller)
	if err != nil {
		t.Fatal(err)
	}
	if res.Set != 1 || res.Cleared != 1 {
		t.Errorf("second Result = %+v", res)
	}
	if got := e.flagged(t, models.FlagBestseller); !equalNames(got, []string{"Amber", "Cassis"}) {
		t.Errorf("bestsellers = %v", got)
	}

	res, _ = r.Run(e.ctx, models.FlagBestseller)
	if res.Set != 0 || res.Cleared != 0 {
		t.Errorf("idempotent run changed products: %+v", res)
	}
}

func TestTrending(t *testing.T) {
	e := newEnv(t)
	old := e.product(t, "Oakmoss")
	fresh := e.product(t, "Fig")
	cancelled := e.product(t, "Cumin")

	e.order(t, old, 20)
	e.clock.Advance(10 * 24 * time.Hour)
	e.order(t, fresh, 2)
	o := e.order(t, cancelled, 9)
	if _, err := e.svc.TransitionOrder(e.ctx, o.ID, shop.TransitionInput{Status: models.OrderCancelled}); err != nil {
		t.Fatal(err)
	}

	r := New(e.svc, Config{TopN: 5, TrendingWindow: 7 * 24 * time.Hour})
	ids, err := r.Trending(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != fresh.ID {
		t.Errorf("Trending = %v, want only %s", ids, fresh.ID)
	}
}

func TestTopRated(t *testing.T) {
	e := newEnv(t)
	rate := func(p *models.Product, avg float64, n int) {
		t.Helper()
		_, err := e.svc.Products().Mutate(e.ctx, p.ID, func(p *models.Product) error {
			p.RatingAvg, p.RatingCount = avg, n
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	rate(e.product(t, "Rose"), 4.9, 5)
	rate(e.product(t, "Lily"), 5.0, 1)
	rate(e.product(t, "Musk"), 4.2, 3)
	rate(e.product(t, "Tonka"), 3.1, 8)

	r := New(e.svc, Config{TopN: 2, MinReviews: 3})
	if _, err := r.Run(e.ctx, models.FlagTopRated); err != nil {
		t.Fatal(err)
	}
	if got := e.flagged(t, models.FlagTopRated); !equalNames(got, []string{"Musk", "Rose"}) {
		t.Errorf("top rated = %v", got)
	}
}

func TestNewArrivals(t *testing.T) {
	e := newEnv(t)
	e.product(t, "Vintage")
	e.clock.Advance(40 * 24 * time.Hour)
	e.product(t, "Launch")
	inactive, err := e.svc.CreateProduct(e.ctx, shop.ProductInput{
		Name: "Hidden", Gender: models.GenderMen, Concentration: models.ConcentrationEDT,
		Variants: []shop.VariantInput{{SizeML: 50, SKU: "HID-50", Price: 10}},
		Active:   new(bool),
	})
	if err != nil {
		t.Fatal(err)
	}

	r := New(e.svc, Config{TopN: 10, NewWindow: 30 * 24 * time.Hour})
	ids, err := r.NewArrivals(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] == inactive.ID {
		t.Errorf("NewArrivals = %v", ids)
	}
	if _, err := r.Run(e.ctx, models.FlagNew); err != nil {
		t.Fatal(err)
	}
	if got := e.flagged(t, models.FlagNew); !equalNames(got, []string{"Launch"}) {
		t.Errorf("new = %v", got)
	}
}

func TestRunInvalidatesStorefront(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "Neroli")
	e.order(t, p, 1)

	home, err := e.svc.StoreHome(e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, rail := range home.Rails {
		if rail.Flag == models.FlagBestseller && len(rail.Products) != 0 {
			t.Fatal("bestseller rail should start empty")
		}
	}

	if _, err := New(e.svc, DefaultConfig()).Run(e.ctx, models.FlagBestseller); err != nil {
		t.Fatal(err)
	}
	home, _ = e.svc.StoreHome(e.ctx)
	for _, rail := range home.Rails {
		if rail.Flag == models.FlagBestseller && len(rail.Products) != 1 {
			t.Errorf("bestseller rail = %d products after run, want 1", len(rail.Products))
		}
	}
}

func TestRunUnknownFlag(t *testing.T) {
	e := newEnv(t)
	if _, err := New(e.svc, DefaultConfig()).Run(e.ctx, models.Flag("limited")); err == nil {
		t.Error("Run(unknown flag) should fail")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.JobsConfig{TopN: 4, TrendingInterval: time.Minute})
	if cfg.TopN != 4 || cfg.Intervals[models.FlagTrending] != time.Minute {
		t.Errorf("ConfigFrom = %+v", cfg)
	}
	if cfg.Intervals[models.FlagBestseller] != time.Hour || cfg.MinReviews != 3 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	s := scheduler.New(scheduler.Config{Clock: e.clock})
	if err := New(e.svc, DefaultConfig()).Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for _, flag := range models.AllFlags {
		st, err := s.Status(TaskName(flag))
		if err != nil {
			t.Errorf("Status(%s): %v", TaskName(flag), err)
			continue
		}
		if st.State != scheduler.StateScheduled || st.Interval != DefaultConfig().Intervals[flag] {
			t.Errorf("Status(%s) = %+v", TaskName(flag), st)
		}
	}
	s.CancelAll()
}
