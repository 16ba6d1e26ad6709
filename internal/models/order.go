// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package models

import "time"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order fields used in queries.
const (
	FieldUserID = "user_id"
	FieldEmail  = "email"
	FieldStatus = "status"
	FieldNumber = "number"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Final reports whether no transition leaves s.
func (s OrderStatus) Final() bool {
	return len(orderTransitions[s]) == 0
}

// PostalAddress is a delivery address.
type PostalAddress struct {
	FullName   string `json:"full_name" bson:"full_name"`
	Phone      string `json:"phone" bson:"phone"`
	Line1      string `json:"line1" bson:"line1"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city"`
	Region     string `json:"region,omitempty" bson:"region,omitempty"`
	PostalCode string `json:"postal_code" bson:"postal_code"`
	Country    string `json:"country" bson:"country"`
}

// OrderItem is a snapshot of one product variant at checkout.
type OrderItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	SizeML    int     `json:"size_ml" bson:"size_ml"`
	SKU       string  `json:"sku" bson:"sku"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// LineTotal is UnitPrice times Quantity.
func (i OrderItem) LineTotal() float64 {
	return RoundMoney(i.UnitPrice * float64(i.Quantity))
}

// StatusChange records one transition.
type StatusChange struct {
	Status OrderStatus `json:"status" bson:"status"`
	At     time.Time   `json:"at" bson:"at"`
	Note   string      `json:"note,omitempty" bson:"note,omitempty"`
}

// Order is a placed checkout. UserID is empty for guest orders.
type Order struct {
	Meta          `bson:",inline"`
	Number        string         `json:"number" bson:"number"`
	UserID        string         `json:"user_id,omitempty" bson:"user_id"`
	Email         string         `json:"email" bson:"email"`
	Items         []OrderItem    `json:"items" bson:"items"`
	Shipping      PostalAddress  `json:"shipping" bson:"shipping"`
	Subtotal      float64        `json:"subtotal" bson:"subtotal"`
	Discount      float64        `json:"discount" bson:"discount"`
	ShippingFee   float64        `json:"shipping_fee" bson:"shipping_fee"`
	Total         float64        `json:"total" bson:"total"`
	Currency      string         `json:"currency" bson:"currency"`
	Status        OrderStatus    `json:"status" bson:"status"`
	StatusHistory []StatusChange `json:"status_history" bson:"status_history"`
	Note          string         `json:"note,omitempty" bson:"note,omitempty"`
}

// Units is the number of bottles in the order.
func (o *Order) Units() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Transition moves the order to next and appends history. The caller checks
// CanTransitionTo first.
func (o *Order) Transition(next OrderStatus, at time.Time, note string) {
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: next, At: at, Note: note})
}
