// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"

	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/shop"
)

func userID(r *http.Request) string {
	return auth.PrincipalFrom(r.Context()).UserID
}

// AccountProfile returns the signed-in user.
//
// @Summary Get the profile
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/profile [get]
func (h *Handler) AccountProfile(w http.ResponseWriter, r *http.Request) {
	h.Me(w, r)
}

// AccountUpdateProfile updates name and phone.
//
// @Summary Update the profile
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body shop.ProfileInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/profile [put]
func (h *Handler) AccountUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in shop.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.shop.UpdateProfile(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, u)
}

// AccountChangePassword replaces the password after checking the current one.
//
// @Summary Change the password
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body shop.PasswordInput true "Request body"
// @Success 204 "No content"
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/password [put]
func (h *Handler) AccountChangePassword(w http.ResponseWriter, r *http.Request) {
	var in shop.PasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.shop.ChangePassword(r.Context(), userID(r), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// AccountAddresses lists saved addresses.
//
// @Summary List saved addresses
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/addresses [get]
func (h *Handler) AccountAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.shop.ListAddresses(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, addresses)
}

// AccountCreateAddress saves an address.
//
// @Summary Save an address
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body shop.AddressInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/addresses [post]
func (h *Handler) AccountCreateAddress(w http.ResponseWriter, r *http.Request) {
	var in shop.AddressInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := h.shop.CreateAddress(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, a)
}

// AccountUpdateAddress replaces an address.
//
// @Summary Replace an address
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.AddressInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/account/addresses/{id} [put]
func (h *Handler) AccountUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var in shop.AddressInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := h.shop.UpdateAddress(r.Context(), userID(r), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, a)
}

// AccountDeleteAddress removes an address.
//
// @Summary Delete an address
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/account/addresses/{id} [delete]
func (h *Handler) AccountDeleteAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.DeleteAddress(r.Context(), userID(r), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// AccountOrders lists the caller's orders, newest first.
//
// @Summary List own orders
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Router /api/v1/account/orders [get]
func (h *Handler) AccountOrders(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	orders, err := h.shop.MyOrders(r.Context(), userID(r), page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, orders)
}

// AccountOrder returns one of the caller's orders.
//
// @Summary Get an own order
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/account/orders/{id} [get]
func (h *Handler) AccountOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.shop.MyOrder(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, o)
}

// AccountCancelOrder cancels a pending order of the caller.
//
// @Summary Cancel a pending order
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/account/orders/{id}/cancel [post]
func (h *Handler) AccountCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.shop.CancelMyOrder(r.Context(), userID(r), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, o)
}
