// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Essence API serves the perfume storefront and its back-office.
//
// @title Essence API
// @version 1.0
// @description Perfume storefront and back-office REST API.
//
// @contact.name Essence maintainers
// @contact.url https://github.com/essence-shop/essence/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token from /api/v1/auth/login, sent as 'Bearer <token>'.
//
// @tag.name Health
// @tag.description Liveness and readiness probes
//
// @tag.name Auth
// @tag.description Registration, sign-in and token revocation
//
// @tag.name Store
// @tag.description Public catalog, reviews, contact form and checkout
//
// @tag.name Account
// @tag.description Profile, addresses and order history of the signed-in customer
//
// @tag.name Admin Catalog
// @tag.description Products, taxonomies and banners
//
// @tag.name Admin Orders
// @tag.description Order fulfilment
//
// @tag.name Admin Users
// @tag.description Account management
//
// @tag.name Admin Reviews
// @tag.description Review moderation
//
// @tag.name Admin Contacts
// @tag.description Contact message inbox
//
// @tag.name Admin Operations
// @tag.description Dashboard, scheduled tasks, cache, performance and audit trail

//go:generate swag init -g cmd/server/docs.go -d ../../ -o ../../docs --parseInternal
package main
