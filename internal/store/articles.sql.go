// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const articleColumns = `a.id, a.title, a.subtitle, a.description, a.content, a.cover_image, a.tags,
	a.slug, a.status, a.read_time, a.meta_title, a.meta_description, a.og_image,
	a.category_id, a.author_id, a.views_count, a.published_at, a.created_at, a.updated_at`

func scanArticle(s scanner, extra ...any) (Article, error) {
	var a Article
	dest := []any{
		&a.ID, &a.Title, &a.Subtitle, &a.Description, &a.Content, &a.CoverImage, &a.Tags,
		&a.Slug, &a.Status, &a.ReadTime, &a.MetaTitle, &a.MetaDescription, &a.OgImage,
		&a.CategoryID, &a.AuthorID, &a.ViewsCount, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	}
	err := s.Scan(append(dest, extra...)...)
	return a, err
}

// CreateArticleParams holds the column values of a new article.
type CreateArticleParams struct {
	Title           string
	Subtitle        sql.NullString
	Description     sql.NullString
	Content         string
	CoverImage      sql.NullString
	Tags            string
	Slug            string
	Status          string
	ReadTime        sql.NullInt64
	MetaTitle       sql.NullString
	MetaDescription sql.NullString
	OgImage         sql.NullString
	CategoryID      sql.NullInt64
	AuthorID        sql.NullInt64
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const createArticle = `
INSERT INTO articles (
	title, subtitle, description, content, cover_image, tags, slug, status, read_time,
	meta_title, meta_description, og_image, category_id, author_id, published_at,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateArticle inserts an article and returns its id.
func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createArticle,
		arg.Title, arg.Subtitle, arg.Description, arg.Content, arg.CoverImage, arg.Tags,
		arg.Slug, arg.Status, arg.ReadTime, arg.MetaTitle, arg.MetaDescription, arg.OgImage,
		arg.CategoryID, arg.AuthorID, arg.PublishedAt, arg.CreatedAt, arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateArticleParams holds every mutable column of an article.
type UpdateArticleParams struct {
	ID              int64
	Title           string
	Subtitle        sql.NullString
	Description     sql.NullString
	Content         string
	CoverImage      sql.NullString
	Tags            string
	Slug            string
	Status          string
	ReadTime        sql.NullInt64
	MetaTitle       sql.NullString
	MetaDescription sql.NullString
	OgImage         sql.NullString
	CategoryID      sql.NullInt64
	PublishedAt     sql.NullTime
	UpdatedAt       time.Time
}

const updateArticle = `
UPDATE articles SET
	title = ?, subtitle = ?, description = ?, content = ?, cover_image = ?, tags = ?,
	slug = ?, status = ?, read_time = ?, meta_title = ?, meta_description = ?, og_image = ?,
	category_id = ?, published_at = ?, updated_at = ?
WHERE id = ?`

// UpdateArticle overwrites the mutable columns of an article.
func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (int64, error) {
	return q.execAffected(ctx, updateArticle,
		arg.Title, arg.Subtitle, arg.Description, arg.Content, arg.CoverImage, arg.Tags,
		arg.Slug, arg.Status, arg.ReadTime, arg.MetaTitle, arg.MetaDescription, arg.OgImage,
		arg.CategoryID, arg.PublishedAt, arg.UpdatedAt, arg.ID,
	)
}

// UpdateArticleSlug sets the slug of an article.
func (q *Queries) UpdateArticleSlug(ctx context.Context, id int64, slug string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE articles SET slug = ? WHERE id = ?`, slug, id)
	return err
}

// GetArticle returns an article by id.
func (q *Queries) GetArticle(ctx context.Context, id int64) (Article, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	return scanArticle(row)
}

const getArticleWithCategory = `SELECT ` + articleColumns + `, c.name, c.slug
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id
WHERE `

func scanArticleWithCategory(s scanner) (ArticleWithCategory, error) {
	var r ArticleWithCategory
	a, err := scanArticle(s, &r.CategoryName, &r.CategorySlug)
	r.Article = a
	return r, err
}

// GetArticleWithCategory returns an article by id joined with its category.
func (q *Queries) GetArticleWithCategory(ctx context.Context, id int64) (ArticleWithCategory, error) {
	return scanArticleWithCategory(q.db.QueryRowContext(ctx, getArticleWithCategory+`a.id = ?`, id))
}

// GetArticleWithCategoryBySlug returns an article by slug joined with its category.
func (q *Queries) GetArticleWithCategoryBySlug(ctx context.Context, slug string) (ArticleWithCategory, error) {
	return scanArticleWithCategory(q.db.QueryRowContext(ctx, getArticleWithCategory+`a.slug = ?`, slug))
}

// DeleteArticle removes an article and returns the number of deleted rows.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, `DELETE FROM articles WHERE id = ?`, id)
}

// SlugExists reports whether an article other than excludeID uses slug.
// An excludeID of zero excludes nothing.
func (q *Queries) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE slug = ? AND id <> ?)`, slug, excludeID,
	).Scan(&exists)
	return exists, err
}

// IncrementArticleViews adds one to the view counter and returns the
// number of affected rows (zero when the article does not exist).
func (q *Queries) IncrementArticleViews(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, `UPDATE articles SET views_count = views_count + 1 WHERE id = ?`, id)
}

// ArticleFilter narrows article listings. Invalid fields do not filter.
type ArticleFilter struct {
	Status       sql.NullString
	CategorySlug sql.NullString
	Tag          sql.NullString
}

func (f ArticleFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Status.Valid {
		clauses = append(clauses, "a.status = ?")
		args = append(args, f.Status.String)
	}
	if f.CategorySlug.Valid {
		clauses = append(clauses, "c.slug = ?")
		args = append(args, f.CategorySlug.String)
	}
	if f.Tag.Valid {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(a.tags) WHERE json_each.value = ?)")
		args = append(args, f.Tag.String)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListArticlesParams selects a page of articles.
type ListArticlesParams struct {
	ArticleFilter
	Limit  int64
	Offset int64
}

// ListArticles returns a page of articles, newest first.
func (q *Queries) ListArticles(ctx context.Context, arg ListArticlesParams) ([]ArticleWithCategory, error) {
	where, args := arg.where()
	query := `SELECT ` + articleColumns + `, c.name, c.slug
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id` + where + `
ORDER BY a.created_at DESC, a.id DESC
LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ArticleWithCategory
	for rows.Next() {
		item, err := scanArticleWithCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountArticles counts the articles matching filter.
func (q *Queries) CountArticles(ctx context.Context, filter ArticleFilter) (int64, error) {
	where, args := filter.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*)
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id`+where, args...).Scan(&n)
	return n, err
}

// ListRelatedArticles returns published articles sharing categoryID,
// excluding excludeID, newest first.
func (q *Queries) ListRelatedArticles(ctx context.Context, categoryID, excludeID, limit int64) ([]ArticleWithCategory, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+articleColumns+`, c.name, c.slug
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id
WHERE a.category_id = ? AND a.id <> ? AND a.status = 'PUBLISHED'
ORDER BY a.published_at DESC, a.id DESC
LIMIT ?`, categoryID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ArticleWithCategory
	for rows.Next() {
		item, err := scanArticleWithCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
