// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

/*
Package validation validates request structs with go-playground/validator v10.

A single validator instance is shared process-wide; it caches struct
metadata, so the first call per type pays the reflection cost.

Fields are reported by their JSON names, and nested fields by path:

	type OrderItemInput struct {
	    SKU      string `json:"sku" validate:"required,sku"`
	    Quantity int    `json:"quantity" validate:"min=1,max=20"`
	}

	type CheckoutInput struct {
	    Email string           `json:"email" validate:"required,email"`
	    Items []OrderItemInput `json:"items" validate:"min=1,dive"`
	}

	// Items[0].Quantity = 0 yields field "items[0].quantity".
	if err := validation.Check(&in); err != nil {
	    return err // *apperr.Error of KindValidation
	}

# Custom Tags

	slug      lowercase letters, digits and single dashes ("rose-oud-50")
	sku       2-40 characters of A-Z, 0-9, '.', '_' and '-'
	notblank  non-empty after trimming whitespace

# Error Translation

Check returns an *apperr.Error whose Fields map holds one message per
failing field. The API layer renders it as a 400 VALIDATION_ERROR with the
fields under error.details.
*/
package validation
