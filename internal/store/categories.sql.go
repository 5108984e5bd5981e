// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const categoryColumns = `id, name, slug, description, created_at, updated_at`

func scanCategory(s scanner) (Category, error) {
	var c Category
	err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams holds the column values of a new category.
type CreateCategoryParams struct {
	Name        string
	Slug        string
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateCategory inserts a category and returns the stored row.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (name, slug, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		arg.Name, arg.Slug, arg.Description, arg.CreatedAt, arg.UpdatedAt,
	)
	if err != nil {
		return Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Category{}, err
	}
	return q.GetCategory(ctx, id)
}

// GetCategory returns a category by id.
func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
}

// GetCategoryBySlug returns a category by slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug))
}

// CategoryExists reports whether a category with id exists.
func (q *Queries) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

// ListCategoriesWithCount returns all categories ordered by name with the
// number of articles in each.
func (q *Queries) ListCategoriesWithCount(ctx context.Context) ([]CategoryWithCount, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM articles a WHERE a.category_id = c.id)
FROM categories c
ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CategoryWithCount
	for rows.Next() {
		var i CategoryWithCount
		if err := rows.Scan(&i.ID, &i.Name, &i.Slug, &i.Description, &i.CreatedAt, &i.UpdatedAt,
			&i.ArticleCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// DeleteCategory removes a category. Articles referencing it keep existing
// with a NULL category.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, `DELETE FROM categories WHERE id = ?`, id)
}
