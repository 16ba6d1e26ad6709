// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
)

// =====================================================
// Error translation
// =====================================================

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", apperr.Field("email", "email is required"), http.StatusBadRequest, ErrCodeValidation, "email is required"},
		{"unauthorized", apperr.Unauthorized("Invalid email or password"), http.StatusUnauthorized, ErrCodeAuthentication, "Invalid email or password"},
		{"forbidden", apperr.Forbidden("Insufficient permissions"), http.StatusForbidden, ErrCodeAuthorization, "Insufficient permissions"},
		{"not found", apperr.NotFound("product", "p1"), http.StatusNotFound, ErrCodeNotFound, ""},
		{"conflict", apperr.Conflict("product was modified"), http.StatusConflict, ErrCodeConflict, "product was modified"},
		{"wrapped conflict", fmt.Errorf("update: %w", apperr.Conflict("stale")), http.StatusConflict, ErrCodeConflict, "stale"},
		{"upstream", apperr.Upstream("smtp", errors.New("dial tcp: refused")), http.StatusBadGateway, ErrCodeUpstream, ""},
		{"internal", apperr.Internal("boom", errors.New("disk full")), http.StatusInternalServerError, ErrCodeInternal, "Internal server error"},
		{"foreign error", errors.New("secret detail"), http.StatusInternalServerError, ErrCodeInternal, "Internal server error"},
		{"store closed", fmt.Errorf("get: %w", database.ErrClosed), http.StatusServiceUnavailable, ErrCodeServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)

			writeServiceError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp models.APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Status != "error" || resp.Error == nil {
				t.Fatalf("response = %+v, want error envelope", resp)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && resp.Error.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMessage)
			}
			if strings.Contains(w.Body.String(), "secret detail") || strings.Contains(w.Body.String(), "disk full") {
				t.Error("internal error text leaked into the response")
			}
		})
	}
}

func TestWriteServiceError_FieldDetails(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/store/checkout", nil)
	writeServiceError(w, r, apperr.Validation("Invalid request", map[string]string{
		"email": "email must be a valid email address",
		"items": "items is required",
	}))

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Error.Details) != 2 {
		t.Fatalf("details = %v, want 2 entries", resp.Error.Details)
	}
	if resp.Error.Details["items"] != "items is required" {
		t.Errorf("details[items] = %v", resp.Error.Details["items"])
	}
}

// =====================================================
// Request decoding
// =====================================================

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    string
	}{
		{"valid", `{"name":"Vetiver"}`, false, "Vetiver"},
		{"empty body", ``, true, ""},
		{"malformed", `{"name":`, true, ""},
		{"unknown field", `{"name":"x","price":3}`, true, ""},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))

			var got body
			err := decodeJSON(w, r, &got)
			if tt.wantErr {
				if apperr.KindOf(err) != apperr.KindValidation {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestQueryParams(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=12&min_price=19.5&active=false&bad=yes&num=abc", nil)

	page, size := pageParams(r)
	if page != 3 || size != 12 {
		t.Errorf("pageParams = (%d, %d), want (3, 12)", page, size)
	}
	if f, err := getFloatParam(r, "min_price"); err != nil || f != 19.5 {
		t.Errorf("getFloatParam = %v, %v", f, err)
	}
	if _, err := getFloatParam(r, "num"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("getFloatParam(num) err = %v, want validation", err)
	}
	if b, err := getBoolParam(r, "active"); err != nil || b == nil || *b {
		t.Errorf("getBoolParam(active) = %v, %v", b, err)
	}
	if b, err := getBoolParam(r, "missing"); err != nil || b != nil {
		t.Errorf("getBoolParam(missing) = %v, %v, want nil", b, err)
	}
	if _, err := getBoolParam(r, "bad"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("getBoolParam(bad) err = %v, want validation", err)
	}

	r = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	if page, size := pageParams(r); page != 1 || size != 0 {
		t.Errorf("defaults = (%d, %d), want (1, 0)", page, size)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("/api\n/v1\x7f"); got != `/api\x0a/v1\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
