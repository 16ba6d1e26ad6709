// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/models"
)

// audited records an admin mutation. Requests rejected as invalid input
// never reached a document and are not recorded.
func (h *Handler) audited(r *http.Request, action audit.Action, target audit.Target, err error, meta map[string]string) {
	if !h.audit.Enabled() {
		return
	}
	e := &audit.Event{
		Action:   action,
		Outcome:  audit.OutcomeSuccess,
		Target:   target,
		Metadata: meta,
	}
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindValidation {
			return
		}
		e.Outcome = audit.OutcomeFailure
		e.Detail = kind.String()
	}
	p := auth.PrincipalFrom(r.Context())
	e.Actor = audit.Actor{ID: p.UserID, Email: p.Email, Role: string(p.Role)}
	h.audit.Log(r.Context(), e)
}

// AdminAudit lists audit events, newest first.
//
// Query parameters: action, actor_id, target_type, outcome, since (RFC 3339),
// page, page_size.
//
// @Summary List audit events
// @Tags Admin Operations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Items per page" minimum(1)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse "Invalid input"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Router /api/v1/admin/audit [get]
func (h *Handler) AdminAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondOK(w, r, models.NewPage([]*audit.Event{}, 0, 1, audit.DefaultPageSize))
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		Action:     audit.Action(q.Get("action")),
		ActorID:    q.Get("actor_id"),
		TargetType: q.Get("target_type"),
		Outcome:    audit.Outcome(q.Get("outcome")),
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeServiceError(w, r, apperr.Field("since", "since must be an RFC 3339 timestamp"))
			return
		}
		f.Since = since
	}
	f.Page, f.PageSize = pageParams(r)

	page, err := h.audit.Query(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondOK(w, r, page)
}
