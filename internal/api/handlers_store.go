// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"

	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/shop"
)

// productFilter parses the shared catalog query parameters.
func productFilter(r *http.Request) (shop.ProductFilter, error) {
	q := r.URL.Query()
	f := shop.ProductFilter{
		BrandID:       q.Get("brand_id"),
		CategoryID:    q.Get("category_id"),
		CollectionID:  q.Get("collection_id"),
		ScentID:       q.Get("scent_id"),
		Gender:        models.Gender(q.Get("gender")),
		Concentration: models.Concentration(q.Get("concentration")),
		Flag:          models.Flag(q.Get("flag")),
		Search:        q.Get("q"),
		Sort:          q.Get("sort"),
	}
	f.Page, f.PageSize = pageParams(r)

	var err error
	if f.MinPrice, err = getFloatParam(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = getFloatParam(r, "max_price"); err != nil {
		return f, err
	}
	if f.Active, err = getBoolParam(r, "active"); err != nil {
		return f, err
	}
	return f, nil
}

// StoreHome returns live banners and the flagged product rails.
//
// @Summary Get the home page
// @Tags Store
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /api/v1/store/home [get]
func (h *Handler) StoreHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.shop.StoreHome(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, home)
}

// StoreProducts lists active products.
//
// @Summary List active products
// @Tags Store
// @Produce json
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/store/products [get]
func (h *Handler) StoreProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.shop.StoreProducts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// StoreSearch runs a text search.
//
// @Summary Search products
// @Tags Store
// @Produce json
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/store/search [get]
func (h *Handler) StoreSearch(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := h.shop.StoreSearch(r.Context(), r.URL.Query().Get("q"), page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, result)
}

// StoreProduct returns one active product by slug.
//
// @Summary Get a product by slug
// @Tags Store
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/store/products/{slug} [get]
func (h *Handler) StoreProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.shop.StoreProduct(r.Context(), pathParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, detail)
}

// StoreFilters returns the catalog facets.
//
// @Summary Get catalog facets
// @Tags Store
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /api/v1/store/filters [get]
func (h *Handler) StoreFilters(w http.ResponseWriter, r *http.Request) {
	facets, err := h.shop.StoreFilters(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, facets)
}

// StoreReviews lists the approved reviews of a product.
//
// @Summary List approved reviews of a product
// @Tags Store
// @Produce json
// @Param slug path string true "Product slug"
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/store/products/{slug}/reviews [get]
func (h *Handler) StoreReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.shop.StoreReviews(r.Context(), pathParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, reviews)
}

// PostReview submits a review for moderation.
//
// @Summary Submit a review
// @Tags Store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Product slug"
// @Param request body shop.ReviewInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/store/products/{slug}/reviews [post]
func (h *Handler) PostReview(w http.ResponseWriter, r *http.Request) {
	var in shop.ReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	userID := auth.PrincipalFrom(r.Context()).UserID
	review, err := h.shop.PostReview(r.Context(), userID, pathParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, review)
}

// SubmitContact stores a contact form message.
//
// @Summary Send a contact message
// @Tags Store
// @Accept json
// @Produce json
// @Param request body shop.ContactInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/store/contact [post]
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var in shop.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	msg, err := h.shop.SubmitContact(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, msg)
}

// Checkout places an order for a guest or the signed-in customer.
//
// @Summary Place an order
// @Tags Store
// @Accept json
// @Produce json
// @Param request body shop.CheckoutInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Router /api/v1/store/checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in shop.CheckoutInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	userID := auth.PrincipalFrom(r.Context()).UserID
	order, err := h.shop.PlaceOrder(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, order)
}
