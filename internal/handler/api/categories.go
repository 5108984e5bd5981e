// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/magazine-api/internal/service"
)

const categoryNotFound = "Category not found"

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, categoryNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	category, err := h.categories.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, categoryNotFound)
		return
	}

	WriteJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/categories/{id}. Articles of the
// category keep existing without one.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "category")
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, categoryNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted"})
}
