// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/shop"
)

// AdminProducts lists products, including inactive ones.
//
// @Summary List products
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/products [get]
func (h *Handler) AdminProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.shop.ListProducts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// AdminProduct returns one product by id.
//
// @Summary Get a product
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/products/{id} [get]
func (h *Handler) AdminProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.shop.GetProduct(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// AdminCreateProduct creates a product.
//
// @Summary Create a product
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body shop.ProductInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/products [post]
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in shop.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := h.shop.CreateProduct(r.Context(), in)
	if err != nil {
		h.audited(r, audit.ActionProductCreate, audit.Target{Type: "product"}, err, nil)
		writeServiceError(w, r, err)
		return
	}
	h.audited(r, audit.ActionProductCreate, audit.Target{Type: "product", ID: p.ID}, nil, map[string]string{"slug": p.Slug})
	respondCreated(w, r, p)
}

// AdminUpdateProduct replaces a product. A non-zero version must match.
//
// @Summary Replace a product
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.ProductInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/products/{id} [put]
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in shop.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := h.shop.UpdateProduct(r.Context(), pathParam(r, "id"), in)
	h.audited(r, audit.ActionProductUpdate, productTarget(r), err, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// AdminDeleteProduct deletes a product and its reviews.
//
// @Summary Delete a product and its reviews
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/products/{id} [delete]
func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.shop.DeleteProduct(r.Context(), pathParam(r, "id"))
	h.audited(r, audit.ActionProductDelete, productTarget(r), err, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// AdminSetDiscount sets the discount percentage.
//
// @Summary Set the discount
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.DiscountInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/products/{id}/discount [put]
func (h *Handler) AdminSetDiscount(w http.ResponseWriter, r *http.Request) {
	var in shop.DiscountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := h.shop.SetDiscount(r.Context(), pathParam(r, "id"), in)
	h.audited(r, audit.ActionProductDiscount, productTarget(r), err, map[string]string{"percent": strconv.Itoa(in.Percent)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// AdminAdjustStock changes the stock of one variant.
//
// @Summary Adjust variant stock
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.StockInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/products/{id}/stock [post]
func (h *Handler) AdminAdjustStock(w http.ResponseWriter, r *http.Request) {
	var in shop.StockInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := h.shop.AdjustStock(r.Context(), pathParam(r, "id"), in)
	h.audited(r, audit.ActionProductStock, productTarget(r), err, map[string]string{"sku": in.SKU})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, p)
}

func productTarget(r *http.Request) audit.Target {
	return audit.Target{Type: "product", ID: pathParam(r, "id")}
}

// taxonHandlers serves CRUD for one taxonomy.
type taxonHandlers[T shop.TaxonDoc] struct {
	tax *shop.Taxonomy[T]
}

// mountTaxonomy registers list, get, create, update and delete under r.
func mountTaxonomy[T shop.TaxonDoc](r chi.Router, tax *shop.Taxonomy[T]) {
	th := taxonHandlers[T]{tax: tax}
	r.Get("/", th.list)
	r.Post("/", th.create)
	r.Get("/{id}", th.get)
	r.Put("/{id}", th.update)
	r.Delete("/{id}", th.delete)
}

func (th taxonHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := getBoolParam(r, "active")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	f := shop.TaxonFilter{ActiveOnly: activeOnly != nil && *activeOnly}
	f.Page, f.PageSize = pageParams(r)
	page, err := th.tax.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

func (th taxonHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	doc, err := th.tax.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, doc)
}

func (th taxonHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var in shop.TaxonInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := th.tax.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, doc)
}

func (th taxonHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	var in shop.TaxonInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := th.tax.Update(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, doc)
}

func (th taxonHandlers[T]) delete(w http.ResponseWriter, r *http.Request) {
	if err := th.tax.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// AdminBanners lists banners by position.
//
// @Summary List banners
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/banners [get]
func (h *Handler) AdminBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.shop.ListBanners(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, banners)
}

// AdminBanner returns one banner.
//
// @Summary Get a banner
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/banners/{id} [get]
func (h *Handler) AdminBanner(w http.ResponseWriter, r *http.Request) {
	b, err := h.shop.GetBanner(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, b)
}

// AdminCreateBanner creates a banner.
//
// @Summary Create a banner
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body shop.BannerInput true "Request body"
// @Success 201 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/banners [post]
func (h *Handler) AdminCreateBanner(w http.ResponseWriter, r *http.Request) {
	var in shop.BannerInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := h.shop.CreateBanner(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, r, b)
}

// AdminUpdateBanner replaces a banner.
//
// @Summary Replace a banner
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.BannerInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/banners/{id} [put]
func (h *Handler) AdminUpdateBanner(w http.ResponseWriter, r *http.Request) {
	var in shop.BannerInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := h.shop.UpdateBanner(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, b)
}

// AdminDeleteBanner deletes a banner.
//
// @Summary Delete a banner
// @Tags Admin Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/banners/{id} [delete]
func (h *Handler) AdminDeleteBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.DeleteBanner(r.Context(), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}
