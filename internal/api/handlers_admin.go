// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/middleware"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
)

// =====================================================
// Orders
// =====================================================

// AdminOrders lists orders, newest first.
//
// @Summary List orders
// @Tags Admin Orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/orders [get]
func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := shop.OrderFilter{
		Status: models.OrderStatus(q.Get("status")),
		Email:  q.Get("email"),
		UserID: q.Get("user_id"),
	}
	f.Page, f.PageSize = pageParams(r)
	page, err := h.shop.ListOrders(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// AdminOrder returns one order.
//
// @Summary Get an order
// @Tags Admin Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/orders/{id} [get]
func (h *Handler) AdminOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.shop.GetOrder(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, o)
}

// AdminTransitionOrder moves an order to a new status.
//
// @Summary Change order status
// @Tags Admin Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.TransitionInput true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/orders/{id}/status [put]
func (h *Handler) AdminTransitionOrder(w http.ResponseWriter, r *http.Request) {
	var in shop.TransitionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	o, err := h.shop.TransitionOrder(r.Context(), pathParam(r, "id"), in)
	h.audited(r, audit.ActionOrderTransition, audit.Target{Type: "order", ID: pathParam(r, "id")}, err,
		map[string]string{"status": string(in.Status)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, o)
}

// =====================================================
// Users
// =====================================================

// AdminUsers lists accounts.
//
// @Summary List accounts
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/users [get]
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	active, err := getBoolParam(r, "active")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	f := shop.UserFilter{
		Role:   models.Role(r.URL.Query().Get("role")),
		Active: active,
		Email:  r.URL.Query().Get("email"),
	}
	f.Page, f.PageSize = pageParams(r)
	page, err := h.shop.ListUsers(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// AdminUser returns one account.
//
// @Summary Get an account
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/users/{id} [get]
func (h *Handler) AdminUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.shop.GetUser(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, u)
}

// AdminUpdateUser changes role or active state.
//
// @Summary Change role or active state
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.UserUpdate true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/users/{id} [put]
func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in shop.UserUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.shop.UpdateUser(r.Context(), userID(r), pathParam(r, "id"), in)
	h.audited(r, audit.ActionUserUpdate, userTarget(r), err, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, u)
}

// AdminDeleteUser deletes an account and its addresses.
//
// @Summary Delete an account
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/users/{id} [delete]
func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.shop.DeleteUser(r.Context(), userID(r), pathParam(r, "id"))
	h.audited(r, audit.ActionUserDelete, userTarget(r), err, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

func userTarget(r *http.Request) audit.Target {
	return audit.Target{Type: "user", ID: pathParam(r, "id")}
}

// =====================================================
// Reviews and contact messages
// =====================================================

// ReviewApproval is the body of the review moderation endpoint.
type ReviewApproval struct {
	Approved bool `json:"approved"`
}

// AdminReviews lists reviews for moderation.
//
// @Summary List reviews for moderation
// @Tags Admin Reviews
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/reviews [get]
func (h *Handler) AdminReviews(w http.ResponseWriter, r *http.Request) {
	approved, err := getBoolParam(r, "approved")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	f := shop.ReviewFilter{ProductID: r.URL.Query().Get("product_id"), Approved: approved}
	f.Page, f.PageSize = pageParams(r)
	page, err := h.shop.ListReviews(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// AdminModerateReview approves or hides a review.
//
// @Summary Approve or hide a review
// @Tags Admin Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body ReviewApproval true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/reviews/{id}/approval [put]
func (h *Handler) AdminModerateReview(w http.ResponseWriter, r *http.Request) {
	var in ReviewApproval
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	review, err := h.shop.SetReviewApproval(r.Context(), pathParam(r, "id"), in.Approved)
	h.audited(r, audit.ActionReviewModerate, audit.Target{Type: "review", ID: pathParam(r, "id")}, err,
		map[string]string{"approved": strconv.FormatBool(in.Approved)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, review)
}

// AdminDeleteReview deletes a review.
//
// @Summary Delete a review
// @Tags Admin Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/reviews/{id} [delete]
func (h *Handler) AdminDeleteReview(w http.ResponseWriter, r *http.Request) {
	err := h.shop.DeleteReview(r.Context(), pathParam(r, "id"))
	h.audited(r, audit.ActionReviewDelete, audit.Target{Type: "review", ID: pathParam(r, "id")}, err, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// AdminContacts lists contact messages.
//
// @Summary List contact messages
// @Tags Admin Contacts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/contacts [get]
func (h *Handler) AdminContacts(w http.ResponseWriter, r *http.Request) {
	unread, err := getBoolParam(r, "unread")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	f := shop.ContactFilter{Unread: unread != nil && *unread}
	f.Page, f.PageSize = pageParams(r)
	page, err := h.shop.ListContacts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// AdminContact returns one message.
//
// @Summary Get a contact message
// @Tags Admin Contacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/contacts/{id} [get]
func (h *Handler) AdminContact(w http.ResponseWriter, r *http.Request) {
	msg, err := h.shop.GetContact(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, msg)
}

// AdminUpdateContact marks a message read or replied.
//
// @Summary Mark a message read or replied
// @Tags Admin Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body shop.ContactUpdate true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Failure 409 {object} models.APIResponse "Version conflict"
// @Router /api/v1/admin/contacts/{id} [put]
func (h *Handler) AdminUpdateContact(w http.ResponseWriter, r *http.Request) {
	var in shop.ContactUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	msg, err := h.shop.UpdateContact(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, msg)
}

// AdminDeleteContact deletes a message.
//
// @Summary Delete a contact message
// @Tags Admin Contacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204 "No content"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/contacts/{id} [delete]
func (h *Handler) AdminDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.DeleteContact(r.Context(), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondNoContent(w)
}

// =====================================================
// Dashboard, jobs, cache
// =====================================================

// AdminDashboard returns the back-office summary.
//
// @Summary Get the back-office summary
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/dashboard [get]
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.shop.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, d)
}

// AdminJobs lists the scheduled tasks.
//
// @Summary List scheduled tasks
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/jobs [get]
func (h *Handler) AdminJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondOK(w, r, []scheduler.Status{})
		return
	}
	respondOK(w, r, h.jobs.StatusAll())
}

// AdminRunJob starts one extra run of a task and returns immediately.
//
// @Summary Run a scheduled task now
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Param name path string true "Task name"
// @Success 202 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/jobs/{name}/run [post]
func (h *Handler) AdminRunJob(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if h.jobs == nil {
		writeServiceError(w, r, apperr.NotFound("task", name))
		return
	}
	err := h.jobs.RunNow(name)
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		writeServiceError(w, r, apperr.NotFound("task", name))
		return
	case errors.Is(err, scheduler.ErrTaskCancelled):
		writeServiceError(w, r, apperr.Conflict("Task "+name+" is cancelled"))
		return
	case err != nil:
		writeServiceError(w, r, err)
		return
	}
	h.audited(r, audit.ActionJobRun, audit.Target{Type: "task", ID: name}, nil, nil)
	logging.Ctx(r.Context()).Info().Str("task", name).Msg("Task run requested")
	st, _ := h.jobs.Status(name)
	respondData(w, r, http.StatusAccepted, st)
}

// AdminRecomputeFlag recomputes one flag synchronously and returns the
// number of products changed.
//
// @Summary Recompute a product flag
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Param flag path string true "Flag name"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Not found"
// @Router /api/v1/admin/flags/{flag}/recompute [post]
func (h *Handler) AdminRecomputeFlag(w http.ResponseWriter, r *http.Request) {
	flag := models.Flag(pathParam(r, "flag"))
	if !flag.Valid() {
		writeServiceError(w, r, apperr.Field("flag", "flag must be one of new, trending, bestseller, top_rated"))
		return
	}
	if h.flags == nil {
		writeServiceError(w, r, apperr.Conflict("Flag jobs are disabled"))
		return
	}
	res, err := h.flags.Run(r.Context(), flag)
	if err != nil {
		h.audited(r, audit.ActionFlagRecompute, audit.Target{Type: "flag", ID: string(flag)}, err, nil)
		writeServiceError(w, r, err)
		return
	}
	h.audited(r, audit.ActionFlagRecompute, audit.Target{Type: "flag", ID: string(flag)}, nil, map[string]string{
		"set":     strconv.Itoa(res.Set),
		"cleared": strconv.Itoa(res.Cleared),
	})
	respondOK(w, r, res)
}

// CacheStats is the body of the cache endpoint.
type CacheStats struct {
	Entries       int      `json:"entries"`
	Hits          int64    `json:"hits"`
	Misses        int64    `json:"misses"`
	HitRate       float64  `json:"hit_rate"`
	Invalidations int64    `json:"invalidations"`
	Keys          []string `json:"keys"`
}

// InvalidateRequest names the key prefix to drop. An empty prefix clears
// the whole cache.
type InvalidateRequest struct {
	Prefix string `json:"prefix"`
}

// AdminCache reports cache statistics.
//
// @Summary Get cache statistics
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/cache [get]
func (h *Handler) AdminCache(w http.ResponseWriter, r *http.Request) {
	c := h.shop.Cache()
	stats := c.GetStats()
	respondOK(w, r, CacheStats{
		Entries:       c.Len(),
		Hits:          stats.Hits,
		Misses:        stats.Misses,
		HitRate:       c.HitRate(),
		Invalidations: stats.Invalidations,
		Keys:          c.Keys(),
	})
}

// AdminInvalidateCache drops cached entries by prefix.
//
// @Summary Invalidate cached entries by prefix
// @Tags Admin Operations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InvalidateRequest true "Request body"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/cache/invalidate [post]
func (h *Handler) AdminInvalidateCache(w http.ResponseWriter, r *http.Request) {
	var in InvalidateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	prefix := strings.TrimSpace(in.Prefix)
	var removed int
	if prefix == "" {
		removed = h.shop.Cache().Clear()
	} else {
		removed = h.shop.Cache().Invalidate(prefix)
	}
	h.audited(r, audit.ActionCacheInvalidate, audit.Target{Type: "cache", ID: prefix}, nil,
		map[string]string{"removed": strconv.Itoa(removed)})
	logging.Ctx(r.Context()).Info().Str("prefix", prefix).Int("removed", removed).Msg("Cache invalidated by admin")
	respondOK(w, r, map[string]any{"prefix": prefix, "removed": removed})
}

// AdminPerformance returns request latency percentiles per route.
//
// @Summary Get request latency percentiles
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/performance [get]
func (h *Handler) AdminPerformance(w http.ResponseWriter, r *http.Request) {
	if h.perfMon == nil {
		respondOK(w, r, []middleware.EndpointStats{})
		return
	}
	respondOK(w, r, h.perfMon.GetStats())
}
