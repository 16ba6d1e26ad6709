// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
)

// Error codes for API responses
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeAuthentication     = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization      = "AUTHORIZATION_ERROR"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

type startKey struct{}

// stampStart records when the request entered the router so responses can
// report query_time_ms.
func stampStart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), startKey{}, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func metadata(r *http.Request) models.Metadata {
	md := models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if start, ok := r.Context().Value(startKey{}).(time.Time); ok {
		md.QueryTimeMS = time.Since(start).Milliseconds()
	}
	return md
}

// respondJSON writes the envelope with the given status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondOK writes a 200 success envelope.
func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	respondData(w, r, http.StatusOK, data)
}

// respondCreated writes a 201 success envelope.
func respondCreated(w http.ResponseWriter, r *http.Request, data any) {
	respondData(w, r, http.StatusCreated, data)
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data any) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r),
	})
}

// respondNoContent writes 204 with no body.
func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Data:     nil,
		Metadata: metadata(r),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeServiceError is the only place a Go error becomes an HTTP status.
// Typed errors keep their message; anything else is logged and reported as
// an internal error without leaking its text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, database.ErrClosed) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Request failed, store is closed")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service is shutting down", nil)
		return
	}

	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("Internal server error", err)
	}

	status, code := statusForKind(e.Kind)
	message := e.Message

	switch e.Kind {
	case apperr.KindInternal:
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg("Internal error")
		message = "Internal server error"
	case apperr.KindUpstream:
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Upstream failure")
	}

	var details map[string]any
	if len(e.Fields) > 0 {
		details = make(map[string]any, len(e.Fields))
		for field, msg := range e.Fields {
			details[field] = msg
		}
	}
	respondError(w, r, status, code, message, details)
}

func statusForKind(k apperr.Kind) (int, string) {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest, ErrCodeValidation
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, ErrCodeAuthentication
	case apperr.KindForbidden:
		return http.StatusForbidden, ErrCodeAuthorization
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case apperr.KindConflict:
		return http.StatusConflict, ErrCodeConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway, ErrCodeUpstream
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
