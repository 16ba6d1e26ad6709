// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/essence-shop/essence/internal/apperr"
)

// maxBodyBytes bounds JSON request bodies. Product documents with ten
// variants and twenty image URLs stay well below it.
const maxBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeJSON reads the request body into dst. Unknown fields are rejected so
// a typo in an admin form does not silently drop a value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is required", nil)
		case errors.As(err, &tooLarge):
			return apperr.Validation(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
		default:
			return apperr.Validation("Invalid JSON body: "+err.Error(), nil)
		}
	}
	return nil
}

// pathParam returns a chi URL parameter.
func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getFloatParam extracts a float query parameter. Unparseable values are
// a validation error rather than silently ignored, since a price filter
// that is dropped returns the wrong products.
func getFloatParam(r *http.Request, key string) (float64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, apperr.Field(key, key+" must be a number")
	}
	return f, nil
}

// getBoolParam returns nil when the parameter is absent.
func getBoolParam(r *http.Request, key string) (*bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, apperr.Field(key, key+" must be true or false")
	}
	return &b, nil
}

// pageParams reads page and page_size; the service applies defaults and
// bounds.
func pageParams(r *http.Request) (page, size int) {
	return getIntParam(r, "page", 1), getIntParam(r, "page_size", 0)
}
