// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/validation"
)

const orderNumberAttempts = 5

// CheckoutItem is one requested line.
type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	SKU       string `json:"sku" validate:"required,sku"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
}

// CheckoutInput places an order. Guests give Email and Shipping; signed-in
// customers may instead pick a saved address with AddressID.
type CheckoutInput struct {
	Email     string         `json:"email" validate:"omitempty,email,max=254"`
	Items     []CheckoutItem `json:"items" validate:"required,min=1,max=50,dive"`
	Shipping  *PostalInput   `json:"shipping"`
	AddressID string         `json:"address_id" validate:"max=64"`
	Note      string         `json:"note" validate:"max=1000"`
}

type lineKey struct{ productID, sku string }

// mergeLines folds repeated product and SKU pairs into one line.
func mergeLines(items []CheckoutItem) []CheckoutItem {
	idx := make(map[lineKey]int, len(items))
	out := make([]CheckoutItem, 0, len(items))
	for _, it := range items {
		k := lineKey{it.ProductID, it.SKU}
		if i, ok := idx[k]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[k] = len(out)
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// reserved is a line whose stock has been taken.
type reserved struct {
	item       models.OrderItem
	discounted float64
}

// PlaceOrder validates the basket against the catalog, takes stock and
// creates a pending order. userID is empty for guests. Stock already taken is
// returned when a later step fails.
func (s *Service) PlaceOrder(ctx context.Context, userID string, in CheckoutInput) (*models.Order, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	lines := mergeLines(in.Items)
	maxUnits := s.shop.MaxItemsPerOrder
	if maxUnits <= 0 {
		maxUnits = 20
	}
	units := 0
	for _, l := range lines {
		units += l.Quantity
	}
	if units > maxUnits {
		return nil, apperr.Field("items", fmt.Sprintf("an order holds at most %d bottles", maxUnits))
	}

	email, shipping, err := s.resolveBuyer(ctx, userID, &in)
	if err != nil {
		return nil, err
	}

	taken := make([]reserved, 0, len(lines))
	for i, l := range lines {
		r, err := s.reserve(ctx, i, l)
		if err != nil {
			s.release(ctx, taken)
			return nil, err
		}
		taken = append(taken, r)
	}

	order := s.buildOrder(userID, email, shipping, strings.TrimSpace(in.Note), taken)
	if err := s.insertOrder(ctx, order); err != nil {
		s.release(ctx, taken)
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	s.invalidate(ctx, PrefixStore, PrefixDashboard)
	logging.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("number", order.Number).
		Int("units", order.Units()).
		Float64("total", order.Total).
		Bool("guest", userID == "").
		Msg("Order placed")

	msg, err := notify.OrderConfirmation(s.shop.Name, order)
	s.sendMail(ctx, msg, err)
	return order, nil
}

// resolveBuyer picks the contact email and delivery address of an order.
func (s *Service) resolveBuyer(ctx context.Context, userID string, in *CheckoutInput) (string, models.PostalAddress, error) {
	var email string
	if userID != "" {
		u, err := s.activeUser(ctx, userID)
		if err != nil {
			return "", models.PostalAddress{}, err
		}
		email = u.Email
	} else {
		email = normalizeEmail(in.Email)
		if email == "" {
			return "", models.PostalAddress{}, apperr.Field("email", "email is required for guest checkout")
		}
	}

	switch {
	case in.AddressID != "":
		if userID == "" {
			return "", models.PostalAddress{}, apperr.Field("address_id", "saved addresses require signing in")
		}
		a, err := s.ownAddress(ctx, userID, in.AddressID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return "", models.PostalAddress{}, apperr.Field("address_id", "address not found")
			}
			return "", models.PostalAddress{}, err
		}
		return email, a.PostalAddress, nil
	case in.Shipping != nil:
		if err := validation.Check(in.Shipping); err != nil {
			return "", models.PostalAddress{}, err
		}
		return email, in.Shipping.Postal(), nil
	default:
		return "", models.PostalAddress{}, apperr.Field("shipping", "shipping address is required")
	}
}

// reserve takes the stock for one line and snapshots the variant.
func (s *Service) reserve(ctx context.Context, i int, l CheckoutItem) (reserved, error) {
	var r reserved
	field := fmt.Sprintf("items[%d]", i)
	_, err := s.products.Mutate(ctx, l.ProductID, func(p *models.Product) error {
		if !p.Active {
			return apperr.Field(field+".product_id", "product is not available")
		}
		v, ok := p.Variant(l.SKU)
		if !ok {
			return apperr.Field(field+".sku", fmt.Sprintf("product has no variant %s", l.SKU))
		}
		if v.Stock < l.Quantity {
			if v.Stock == 0 {
				return apperr.Conflict(fmt.Sprintf("%s %d ml is out of stock", p.Name, v.SizeML))
			}
			return apperr.Conflict(fmt.Sprintf("Only %d left of %s %d ml", v.Stock, p.Name, v.SizeML))
		}
		v.Stock -= l.Quantity
		p.SoldCount += l.Quantity
		r = reserved{
			item: models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				SizeML:    v.SizeML,
				SKU:       v.SKU,
				UnitPrice: models.RoundMoney(v.Price),
				Quantity:  l.Quantity,
			},
			discounted: p.DiscountedPrice(v.Price),
		}
		return nil
	})
	if database.IsNotFound(err) {
		return r, apperr.Field(field+".product_id", "product is not available")
	}
	if err != nil {
		return r, storeErr(err, "product", l.ProductID)
	}
	return r, nil
}

// release puts reserved stock back. Failures are logged.
func (s *Service) release(ctx context.Context, lines []reserved) {
	items := make([]models.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = l.item
	}
	s.restock(ctx, items)
}

// restock returns the units of items to stock and takes them off the sales
// count. Deleted products and variants are skipped.
func (s *Service) restock(ctx context.Context, items []models.OrderItem) {
	for _, it := range items {
		_, err := s.products.Mutate(ctx, it.ProductID, func(p *models.Product) error {
			v, ok := p.Variant(it.SKU)
			if !ok {
				return database.ErrNoChange
			}
			v.Stock += it.Quantity
			p.SoldCount -= it.Quantity
			if p.SoldCount < 0 {
				p.SoldCount = 0
			}
			return nil
		})
		if err != nil && !database.IsNotFound(err) {
			logging.Ctx(ctx).Error().Err(err).
				Str("product_id", it.ProductID).
				Str("sku", it.SKU).
				Int("quantity", it.Quantity).
				Msg("Failed to restock")
		}
	}
}

func (s *Service) buildOrder(userID, email string, shipping models.PostalAddress, note string, lines []reserved) *models.Order {
	o := &models.Order{
		UserID:   userID,
		Email:    email,
		Items:    make([]models.OrderItem, len(lines)),
		Shipping: shipping,
		Currency: s.shop.Currency,
		Note:     note,
	}
	if o.Currency == "" {
		o.Currency = "EUR"
	}
	for i, l := range lines {
		o.Items[i] = l.item
		o.Subtotal += l.item.LineTotal()
		o.Discount += models.RoundMoney((l.item.UnitPrice - l.discounted) * float64(l.item.Quantity))
	}
	o.Subtotal = models.RoundMoney(o.Subtotal)
	o.Discount = models.RoundMoney(o.Discount)
	net := models.RoundMoney(o.Subtotal - o.Discount)
	o.ShippingFee = models.RoundMoney(s.shop.ShippingFee)
	if s.shop.FreeShippingThreshold > 0 && net >= s.shop.FreeShippingThreshold {
		o.ShippingFee = 0
	}
	o.Total = models.RoundMoney(net + o.ShippingFee)
	o.Transition(models.OrderPending, s.Now().Truncate(time.Millisecond), "")
	return o
}

// newOrderNumber returns "ES-YYYYMMDD-XXXXXX".
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ES-%s-%s", at.UTC().Format("20060102"), suffix)
}

// insertOrder stores o under a fresh order number, drawing a new one when
// the number is taken.
func (s *Service) insertOrder(ctx context.Context, o *models.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.ID = ""
		o.Number = newOrderNumber(s.Now())
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, database.ErrDuplicate) {
			return storeErr(err, "order", "")
		}
	}
	return apperr.Internal("could not allocate an order number", err)
}
