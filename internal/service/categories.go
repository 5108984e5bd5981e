// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/magazine-api/internal/cache"
	"github.com/olegiv/magazine-api/internal/content"
	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/util"
)

// Category field limits.
const (
	MaxCategoryNameLength        = 100
	MaxCategoryDescriptionLength = 1000
)

const categoriesListKey = categoriesCachePrefix + "list"

// CategoryInput is the create payload of a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CategoryView is the public representation of a category.
type CategoryView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Count       int64     `json:"count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryService manages article categories.
type CategoryService struct {
	queries *store.Queries
	cache   cache.Cache
	logger  *slog.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db *sql.DB, c cache.Cache, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		queries: store.New(db),
		cache:   c,
		logger:  logger,
	}
}

// List returns every category ordered by name with its article count.
func (s *CategoryService) List(ctx context.Context) ([]CategoryView, error) {
	return cache.Remember(ctx, s.cache, s.logger, categoriesListKey, func() ([]CategoryView, error) {
		rows, err := s.queries.ListCategoriesWithCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		out := make([]CategoryView, 0, len(rows))
		for _, r := range rows {
			v := toCategoryView(r.Category)
			v.Count = r.ArticleCount
			out = append(out, v)
		}
		return out, nil
	})
}

// Create adds a category. The slug defaults to the slugified name.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*CategoryView, error) {
	name := content.SanitizeString(in.Name, 0)
	v := &validator{}
	v.check(name != "", "Name is required")
	v.check(utf8.RuneCountInString(name) <= MaxCategoryNameLength,
		fmt.Sprintf("Name must be at most %d characters", MaxCategoryNameLength))
	v.check(utf8.RuneCountInString(in.Description) <= MaxCategoryDescriptionLength,
		fmt.Sprintf("Description must be at most %d characters", MaxCategoryDescriptionLength))

	slug := util.Slugify(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = util.Slugify(name)
	}
	v.check(name == "" || slug != "", "Slug could not be generated from the name")
	if err := v.err(); err != nil {
		return nil, err
	}

	now := store.Now()
	c, err := s.queries.CreateCategory(ctx, store.CreateCategoryParams{
		Name:        name,
		Slug:        slug,
		Description: util.NullStringFromValue(content.SanitizeString(in.Description, MaxCategoryDescriptionLength)),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "Category with this name or slug already exists"}
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created", "category_id", c.ID, "slug", c.Slug)
	cache.Invalidate(ctx, s.cache, s.logger, categoriesCachePrefix)

	view := toCategoryView(c)
	return &view, nil
}

// Delete removes a category. Its articles become uncategorised.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "category deleted", "category_id", id)
	cache.Invalidate(ctx, s.cache, s.logger, categoriesCachePrefix, articlesCachePrefix)
	return nil
}

func toCategoryView(c store.Category) CategoryView {
	return CategoryView{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: nullStringPtr(c.Description),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
