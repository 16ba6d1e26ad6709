// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/validation"
)

// OrderFilter selects orders for the back-office.
type OrderFilter struct {
	Status   models.OrderStatus `validate:"omitempty,oneof=pending processing shipped delivered cancelled"`
	Email    string
	UserID   string
	Page     int
	PageSize int
}

// TransitionInput moves an order to a new status.
type TransitionInput struct {
	Status  models.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	Note    string             `json:"note" validate:"max=500"`
	Version int64              `json:"version" validate:"gte=0"`
}

// ListOrders returns orders, newest first.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) (models.Page[*models.Order], error) {
	if err := validation.Check(&f); err != nil {
		return models.Page[*models.Order]{}, err
	}
	q := database.Where().OrderBy(models.FieldCreatedAt, true)
	if f.Status != "" {
		q = q.And(database.Eq(models.FieldStatus, string(f.Status)))
	}
	if e := strings.TrimSpace(f.Email); e != "" {
		q = q.And(database.Contains(models.FieldEmail, e))
	}
	if f.UserID != "" {
		q = q.And(database.Eq(models.FieldUserID, f.UserID))
	}
	page, size := s.pageBounds(f.Page, f.PageSize)
	return s.orders.Page(ctx, q, page, size)
}

// GetOrder loads an order.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	return o, storeErr(err, "order", id)
}

// TransitionOrder moves an order along its lifecycle. Cancelling returns the
// items to stock. The customer is mailed about the change.
func (s *Service) TransitionOrder(ctx context.Context, id string, in TransitionInput) (*models.Order, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, in, nil)
}

// transition applies in to order id. guard, when set, may reject the order
// before the status check.
func (s *Service) transition(ctx context.Context, id string, in TransitionInput, guard func(*models.Order) error) (*models.Order, error) {
	at := s.Now().Truncate(time.Millisecond)
	var from models.OrderStatus
	o, err := s.orders.Mutate(ctx, id, func(o *models.Order) error {
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		if err := checkVersion("order", o.Version, in.Version); err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(in.Status) {
			return apperr.Conflict(fmt.Sprintf("Cannot move order %s from %s to %s", o.Number, o.Status, in.Status))
		}
		from = o.Status
		o.Transition(in.Status, at, strings.TrimSpace(in.Note))
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "order", id)
	}

	metrics.OrderStatusTransitions.WithLabelValues(string(in.Status)).Inc()
	prefixes := []string{PrefixDashboard}
	if in.Status == models.OrderCancelled {
		s.restock(ctx, o.Items)
		prefixes = append(prefixes, PrefixStore)
	}
	s.invalidate(ctx, prefixes...)
	logging.Ctx(ctx).Info().
		Str("order_id", o.ID).
		Str("number", o.Number).
		Str("from", string(from)).
		Str("to", string(o.Status)).
		Msg("Order status changed")

	msg, err := notify.OrderStatusChanged(s.shop.Name, o, strings.TrimSpace(in.Note))
	s.sendMail(ctx, msg, err)
	return o, nil
}

// MyOrders lists the caller's orders, newest first.
func (s *Service) MyOrders(ctx context.Context, userID string, page, size int) (models.Page[*models.Order], error) {
	if userID == "" {
		return models.Page[*models.Order]{}, apperr.Unauthorized("Authentication required")
	}
	return s.ListOrders(ctx, OrderFilter{UserID: userID, Page: page, PageSize: size})
}

// MyOrder loads one of the caller's orders. Orders of other users are
// reported as not found.
func (s *Service) MyOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID == "" || o.UserID != userID {
		return nil, apperr.NotFound("order", id)
	}
	return o, nil
}

// CancelMyOrder cancels one of the caller's orders while it is pending.
func (s *Service) CancelMyOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	in := TransitionInput{Status: models.OrderCancelled, Note: "Cancelled by customer"}
	return s.transition(ctx, id, in, func(o *models.Order) error {
		if userID == "" || o.UserID != userID {
			return apperr.NotFound("order", id)
		}
		if o.Status != models.OrderPending {
			return apperr.Conflict(fmt.Sprintf("Order %s is %s and can no longer be cancelled", o.Number, o.Status))
		}
		return nil
	})
}
