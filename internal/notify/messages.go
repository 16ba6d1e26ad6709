// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/essence-shop/essence/internal/models"
)

var templateFuncs = template.FuncMap{
	"money": func(v float64, currency string) string {
		return fmt.Sprintf("%.2f %s", v, currency)
	},
	"line": func(it models.OrderItem) float64 { return it.LineTotal() },
}

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Funcs(templateFuncs).Parse(
	`Hello {{.Order.Shipping.FullName}},

Thank you for your order {{.Order.Number}}.

{{range .Order.Items}}- {{.Name}} {{.SizeML}} ml x {{.Quantity}}: {{money (line .) $.Order.Currency}}
{{end}}
Subtotal: {{money .Order.Subtotal .Order.Currency}}
{{- if gt .Order.Discount 0.0}}
Discount: -{{money .Order.Discount .Order.Currency}}
{{- end}}
Shipping: {{money .Order.ShippingFee .Order.Currency}}
Total:    {{money .Order.Total .Order.Currency}}

Delivery to:
{{.Order.Shipping.Line1}}
{{- if .Order.Shipping.Line2}}
{{.Order.Shipping.Line2}}
{{- end}}
{{.Order.Shipping.PostalCode}} {{.Order.Shipping.City}}
{{.Order.Shipping.Country}}

We will let you know when it ships.
{{.Shop}}
`))

var orderStatusTmpl = template.Must(template.New("order_status").Funcs(templateFuncs).Parse(
	`Hello {{.Order.Shipping.FullName}},

Your order {{.Order.Number}} is now {{.Order.Status}}.
{{- if .Note}}

{{.Note}}
{{- end}}

{{.Shop}}
`))

var contactTmpl = template.Must(template.New("contact").Parse(
	`New message from the contact form.

From:    {{.Name}} <{{.Email}}>
Subject: {{.Subject}}

{{.Body}}
`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

// OrderConfirmation builds the mail sent to the customer after checkout.
func OrderConfirmation(shop string, order *models.Order) (Message, error) {
	body, err := render(orderConfirmationTmpl, struct {
		Shop  string
		Order *models.Order
	}{shop, order})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindOrderConfirmation,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("%s: order %s confirmed", shop, order.Number),
		Body:    body,
	}, nil
}

// OrderStatusChanged builds the mail sent when an order changes status.
func OrderStatusChanged(shop string, order *models.Order, note string) (Message, error) {
	body, err := render(orderStatusTmpl, struct {
		Shop  string
		Order *models.Order
		Note  string
	}{shop, order, note})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindOrderStatus,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("%s: order %s %s", shop, order.Number, order.Status),
		Body:    body,
	}, nil
}

// ContactReceived builds the notification sent to the shop inbox. Replies go
// to the sender.
func ContactReceived(inbox string, msg *models.ContactMessage) (Message, error) {
	body, err := render(contactTmpl, msg)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindContact,
		To:      []string{inbox},
		ReplyTo: msg.Email,
		Subject: "Contact: " + msg.Subject,
		Body:    body,
	}, nil
}
