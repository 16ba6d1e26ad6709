// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"sort"

	"github.com/essence-shop/essence/internal/cache"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
)

// LowStock is a variant at or below the low-stock threshold.
type LowStock struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	SizeML    int    `json:"size_ml"`
	Stock     int    `json:"stock"`
}

// Dashboard summarizes the shop for the back-office.
type Dashboard struct {
	Counts         map[string]int             `json:"counts"`
	Revenue        float64                    `json:"revenue"`
	Currency       string                     `json:"currency"`
	OrdersByStatus map[models.OrderStatus]int `json:"orders_by_status"`
	LowStock       []LowStock                 `json:"low_stock"`
	UnreadContacts int                        `json:"unread_contacts"`
	PendingReviews int                        `json:"pending_reviews"`
	RecentOrders   []*models.Order            `json:"recent_orders"`
}

const recentOrders = 5

// Dashboard returns the back-office summary.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return cache.GetOrCompute(ctx, s.cache, PrefixDashboard+"summary", s.dashboardTTL(), s.computeDashboard)
}

func (s *Service) computeDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{
		Counts:         map[string]int{},
		Currency:       s.shop.Currency,
		OrdersByStatus: map[models.OrderStatus]int{},
		LowStock:       []LowStock{},
	}
	if d.Currency == "" {
		d.Currency = "EUR"
	}

	counters := []struct {
		name  string
		count func(context.Context) (int, error)
	}{
		{"products", func(ctx context.Context) (int, error) { return s.products.Count(ctx, database.Where()) }},
		{"brands", s.brands.Count},
		{"categories", s.categories.Count},
		{"collections", s.collections.Count},
		{"scents", s.scents.Count},
		{"banners", func(ctx context.Context) (int, error) { return s.banners.Count(ctx, database.Where()) }},
		{"users", func(ctx context.Context) (int, error) { return s.users.Count(ctx, database.Where()) }},
		{"reviews", func(ctx context.Context) (int, error) { return s.reviews.Count(ctx, database.Where()) }},
		{"contacts", func(ctx context.Context) (int, error) { return s.contacts.Count(ctx, database.Where()) }},
	}
	for _, c := range counters {
		n, err := c.count(ctx)
		if err != nil {
			return nil, err
		}
		d.Counts[c.name] = n
	}

	orders := 0
	err := s.orders.Each(ctx, database.Where(), func(o *models.Order) error {
		orders++
		d.OrdersByStatus[o.Status]++
		if o.Status != models.OrderCancelled {
			d.Revenue += o.Total
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.Counts["orders"] = orders
	d.Revenue = models.RoundMoney(d.Revenue)

	threshold := s.shop.LowStockThreshold
	if threshold <= 0 {
		threshold = 5
	}
	err = s.products.Each(ctx, database.Where(database.Eq(models.FieldActive, true)), func(p *models.Product) error {
		for _, v := range p.Variants {
			if v.Stock <= threshold {
				d.LowStock = append(d.LowStock, LowStock{ProductID: p.ID, Name: p.Name, SKU: v.SKU, SizeML: v.SizeML, Stock: v.Stock})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(d.LowStock, func(i, j int) bool { return d.LowStock[i].Stock < d.LowStock[j].Stock })

	if d.UnreadContacts, err = s.contacts.Count(ctx, database.Where(database.Eq(models.FieldRead, false))); err != nil {
		return nil, err
	}
	if d.PendingReviews, err = s.reviews.Count(ctx, database.Where(database.Eq(models.FieldApproved, false))); err != nil {
		return nil, err
	}
	if d.RecentOrders, err = s.orders.List(ctx, database.Where().OrderBy(models.FieldCreatedAt, true).Paginate(1, recentOrders)); err != nil {
		return nil, err
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []*models.Order{}
	}
	return d, nil
}
