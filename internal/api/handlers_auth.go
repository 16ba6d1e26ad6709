// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/shop"
)

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates a customer account and signs it in.
//
// @Summary Register a customer account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body shop.RegisterInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in shop.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.shop.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp, err := h.issue(u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, resp)
}

// Login exchanges credentials for an access token.
//
// @Summary Sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body shop.LoginInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in shop.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.shop.Authenticate(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp, err := h.issue(u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("user_id", u.ID).Msg("User logged in")
	respondOK(w, r, resp)
}

// Logout revokes the presented token until it expires.
//
// @Summary Revoke the presented token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	if p.Claims == nil {
		writeServiceError(w, r, apperr.Unauthorized("Authentication required"))
		return
	}
	h.tokens.Revoke(p.Claims)
	respondNoContent(w)
}

// Me returns the signed-in user.
//
// @Summary Get the signed-in user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.shop.Me(r.Context(), auth.PrincipalFrom(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, u)
}

func (h *Handler) issue(u *models.User) (*TokenResponse, error) {
	token, claims, err := h.tokens.Issue(u)
	if err != nil {
		return nil, apperr.Internal("Could not issue token", err)
	}
	return &TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
	}, nil
}
