// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/magazine-api/internal/service"
	"github.com/olegiv/magazine-api/internal/util"
)

// StatusResponse acknowledges an accepted request.
type StatusResponse struct {
	Status string `json:"status"`
}

// Track handles POST /api/analytics/track. The client IP and user agent
// only feed the visitor hash and the device and country breakdowns.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var in service.TrackInput
	if !decodeJSON(w, r, &in) {
		return
	}

	visitor := service.Visitor{
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := h.analytics.Track(r.Context(), in, visitor); err != nil {
		h.writeServiceError(w, r, err, "Article not found")
		return
	}
	WriteJSON(w, http.StatusAccepted, StatusResponse{Status: "ok"})
}

// Dashboard handles GET /api/analytics/dashboard?days=N.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Dashboard(r.Context(), queryInt(r, "days", service.DefaultStatsDays))
	if err != nil {
		h.writeServiceError(w, r, err, "Not found")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ArticleStats handles GET /api/analytics/article/{id}?days=N.
func (h *Handler) ArticleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "article")
	if !ok {
		return
	}

	stats, err := h.analytics.ArticleStats(r.Context(), id, queryInt(r, "days", service.DefaultStatsDays))
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
