// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package models

import "time"

// Role of a user account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	// RoleAnonymous is never stored; it is the role of unauthenticated requests.
	RoleAnonymous Role = "anonymous"
)

// Valid reports whether r can be assigned to an account.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// Customer-side fields used in queries.
const (
	FieldRole       = "role"
	FieldProductID  = "product_id"
	FieldApproved   = "approved"
	FieldRead       = "read"
	FieldIsDefault  = "is_default"
	FieldRating     = "rating"
	FieldLastLogin  = "last_login_at"
	FieldPasswdHash = "password_hash"
)

// User is an account. Email is unique and stored lowercased.
type User struct {
	Meta         `bson:",inline"`
	Email        string     `json:"email" bson:"email"`
	Name         string     `json:"name" bson:"name"`
	Phone        string     `json:"phone,omitempty" bson:"phone,omitempty"`
	PasswordHash string     `json:"-" bson:"password_hash"`
	Role         Role       `json:"role" bson:"role"`
	Active       bool       `json:"active" bson:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
}

// Address is a saved delivery address of a user.
type Address struct {
	Meta          `bson:",inline"`
	PostalAddress `bson:",inline"`
	UserID        string `json:"user_id" bson:"user_id"`
	Label         string `json:"label" bson:"label"`
	IsDefault     bool   `json:"is_default" bson:"is_default"`
}

// Review is a customer rating of a product. Only approved reviews count
// towards the product rating.
type Review struct {
	Meta       `bson:",inline"`
	ProductID  string `json:"product_id" bson:"product_id"`
	UserID     string `json:"user_id" bson:"user_id"`
	AuthorName string `json:"author_name" bson:"author_name"`
	Rating     int    `json:"rating" bson:"rating"`
	Title      string `json:"title" bson:"title"`
	Body       string `json:"body" bson:"body"`
	Approved   bool   `json:"approved" bson:"approved"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	Meta      `bson:",inline"`
	Name      string     `json:"name" bson:"name"`
	Email     string     `json:"email" bson:"email"`
	Subject   string     `json:"subject" bson:"subject"`
	Body      string     `json:"body" bson:"body"`
	Read      bool       `json:"read" bson:"read"`
	RepliedAt *time.Time `json:"replied_at,omitempty" bson:"replied_at,omitempty"`
}
