// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/essence-shop/essence/internal/apperr"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

type testItem struct {
	SKU      string `json:"sku" validate:"required,sku"`
	Quantity int    `json:"quantity" validate:"min=1,max=20"`
}

type testInput struct {
	Name   string     `json:"name" validate:"required,notblank,max=100"`
	Slug   string     `json:"slug" validate:"omitempty,slug"`
	Email  string     `json:"email" validate:"omitempty,email"`
	Gender string     `json:"gender" validate:"omitempty,oneof=men women unisex"`
	Rating int        `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Items  []testItem `json:"items" validate:"omitempty,max=3,dive"`
	Secret string     `json:"-" validate:"omitempty,min=8"`
}

func validInput() testInput {
	return testInput{
		Name:   "Rose Oud",
		Slug:   "rose-oud",
		Email:  "ada@example.com",
		Gender: "unisex",
		Rating: 5,
		Items:  []testItem{{SKU: "RO-50", Quantity: 2}},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testInput)
	}{
		{"all fields", func(*testInput) {}},
		{"optional fields empty", func(in *testInput) {
			in.Slug, in.Email, in.Gender, in.Rating, in.Items = "", "", "", 0, nil
		}},
		{"sku with dots and underscores", func(in *testInput) { in.Items[0].SKU = "EDP.100_V2" }},
		{"single word slug", func(in *testInput) { in.Slug = "vetiver" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			if err := ValidateStruct(&in); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*testInput)
		wantField string
		wantTag   string
	}{
		{"missing name", func(in *testInput) { in.Name = "" }, "name", "required"},
		{"blank name", func(in *testInput) { in.Name = "   " }, "name", "notblank"},
		{"uppercase slug", func(in *testInput) { in.Slug = "Rose-Oud" }, "slug", "slug"},
		{"double dash slug", func(in *testInput) { in.Slug = "rose--oud" }, "slug", "slug"},
		{"bad email", func(in *testInput) { in.Email = "nope" }, "email", "email"},
		{"unknown gender", func(in *testInput) { in.Gender = "kids" }, "gender", "oneof"},
		{"rating above 5", func(in *testInput) { in.Rating = 6 }, "rating", "lte"},
		{"too many items", func(in *testInput) {
			in.Items = []testItem{{"A1", 1}, {"A2", 1}, {"A3", 1}, {"A4", 1}}
		}, "items", "max"},
		{"nested quantity", func(in *testInput) { in.Items[0].Quantity = 0 }, "items[0].quantity", "min"},
		{"lowercase sku", func(in *testInput) { in.Items[0].SKU = "ro-50" }, "items[0].sku", "sku"},
		{"json-hidden field keeps Go name", func(in *testInput) { in.Secret = "short" }, "Secret", "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := ValidateStruct(&in)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			found := false
			for _, e := range err.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Expected error on field %s with tag %s, got: %v", tt.wantField, tt.wantTag, err.Errors())
			}
		})
	}
}

// ===================================================================================================
// Message Translation Tests
// ===================================================================================================

func TestTranslatedMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testInput)
		want   string
	}{
		{"required", func(in *testInput) { in.Name = "" }, "name is required"},
		{"string max", func(in *testInput) { in.Name = strings.Repeat("x", 101) }, "name must be at most 100 characters"},
		{"list max", func(in *testInput) {
			in.Items = []testItem{{"A1", 1}, {"A2", 1}, {"A3", 1}, {"A4", 1}}
		}, "items must contain at most 3 items"},
		{"number min", func(in *testInput) { in.Items[0].Quantity = 0 }, "quantity must be at least 1"},
		{"oneof", func(in *testInput) { in.Gender = "kids" }, "gender must be one of: men women unisex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := ValidateStruct(&in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := err.Errors()[0].Error(); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

// ===================================================================================================
// apperr Translation Tests
// ===================================================================================================

func TestToAppError(t *testing.T) {
	in := validInput()
	in.Name = ""
	in.Email = "nope"

	ve := ValidateStruct(&in)
	if ve == nil {
		t.Fatal("expected validation error")
	}
	appErr := ve.ToAppError()

	if appErr.Kind != apperr.KindValidation {
		t.Errorf("Kind = %v, want validation", appErr.Kind)
	}
	if appErr.Fields["name"] != "name is required" {
		t.Errorf("Fields[name] = %q", appErr.Fields["name"])
	}
	if appErr.Fields["email"] != "email must be a valid email address" {
		t.Errorf("Fields[email] = %q", appErr.Fields["email"])
	}
	if !strings.Contains(appErr.Message, "; ") {
		t.Errorf("multi-error message should join messages, got %q", appErr.Message)
	}
}

func TestCheck(t *testing.T) {
	in := validInput()
	if err := Check(&in); err != nil {
		t.Errorf("Check(valid) = %v", err)
	}

	in.Rating = 9
	err := Check(&in)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("Check(invalid) = %v, want a validation error", err)
	}
	e, _ := apperr.As(err)
	if e.Message != "rating must be less than or equal to 5" {
		t.Errorf("single-error message = %q", e.Message)
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
	if ve.ToAppError().Message != "Validation failed" {
		t.Errorf("ToAppError().Message = %q", ve.ToAppError().Message)
	}
}
