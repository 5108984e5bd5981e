// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/service"
)

const articleNotFound = "Article not found"

// canSeeUnpublished reports whether the caller may read drafts and archived articles.
func canSeeUnpublished(r *http.Request) bool {
	identity := middleware.GetIdentity(r)
	return identity != nil && identity.Role.AtLeast(model.RoleEditor)
}

// ListArticles handles GET /api/articles.
// Query parameters: status (editors only), category, tag, page, limit, offset.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.articles.List(r.Context(), service.ArticleQuery{
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		Tag:       q.Get("tag"),
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", service.DefaultPageSize),
		Offset:    queryInt(r, "offset", 0),
		AnyStatus: canSeeUnpublished(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetArticle handles GET /api/articles/{idOrSlug} and counts the view.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), chi.URLParam(r, "idOrSlug"), canSeeUnpublished(r))
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, article)
}

// RelatedArticles handles GET /api/articles/{idOrSlug}/related.
func (h *Handler) RelatedArticles(w http.ResponseWriter, r *http.Request) {
	related, err := h.articles.Related(r.Context(), chi.URLParam(r, "idOrSlug"),
		queryInt(r, "limit", service.DefaultRelatedLimit))
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, related)
}

// CreateArticle handles POST /api/articles.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var in service.ArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	article, err := h.articles.Create(r.Context(), middleware.GetUserID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}

	WriteJSON(w, http.StatusCreated, article)
}

// UpdateArticle handles PUT and PATCH /api/articles/{id}. Both are partial:
// absent fields keep their stored values.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "article")
	if !ok {
		return
	}

	var in service.ArticleInput
	if !decodeJSON(w, r, &in) {
		return
	}

	article, err := h.articles.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, article)
}

// DeleteArticle handles DELETE /api/articles/{id}.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "article")
	if !ok {
		return
	}

	if err := h.articles.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, articleNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Article deleted"})
}
