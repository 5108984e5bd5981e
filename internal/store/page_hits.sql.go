// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// CreatePageHitParams holds the column values of a tracked event.
type CreatePageHitParams struct {
	ArticleID     sql.NullInt64
	Path          string
	VisitorHash   string
	SessionID     string
	DeviceType    string
	Browser       string
	OS            string
	Country       string
	Referrer      string
	EventType     string
	EventMetadata string
	Timestamp     time.Time
}

// CreatePageHit appends an event to page_hits.
// An article id that does not exist is stored as NULL.
func (q *Queries) CreatePageHit(ctx context.Context, arg CreatePageHitParams) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO page_hits (
	article_id, path, visitor_hash, session_id, device_type, browser, os, country,
	referrer, event_type, event_metadata, timestamp
) VALUES ((SELECT id FROM articles WHERE id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ArticleID, arg.Path, arg.VisitorHash, arg.SessionID, arg.DeviceType, arg.Browser,
		arg.OS, arg.Country, arg.Referrer, arg.EventType, arg.EventMetadata, arg.Timestamp,
	)
	return err
}

// RollupPageHitDay rebuilds the page_hit_daily rows of one day (YYYY-MM-DD)
// from the raw view events of that day. Running it again yields the same rows.
func (q *Queries) RollupPageHitDay(ctx context.Context, day string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM page_hit_daily WHERE date = ?`, day); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
INSERT INTO page_hit_daily (date, path, article_id, views, unique_visitors)
SELECT ?1, path, COALESCE(article_id, 0), COUNT(*), COUNT(DISTINCT visitor_hash)
FROM page_hits
WHERE event_type = 'view' AND date(timestamp) = ?1
GROUP BY path, COALESCE(article_id, 0)`, day)
	return err
}

// DailyViews is the number of views on one day.
type DailyViews struct {
	Date  string
	Views int64
}

// ListDailyViews returns per-day views from the rollup table between from
// and to (inclusive, YYYY-MM-DD). An articleID of zero covers every path.
func (q *Queries) ListDailyViews(ctx context.Context, from, to string, articleID int64) ([]DailyViews, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT date, SUM(views)
FROM page_hit_daily
WHERE date BETWEEN ?1 AND ?2 AND (?3 = 0 OR article_id = ?3)
GROUP BY date
ORDER BY date`, from, to, articleID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []DailyViews
	for rows.Next() {
		var d DailyViews
		if err := rows.Scan(&d.Date, &d.Views); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// CountRawViews returns the view events on a single day straight from
// page_hits. An articleID of zero covers every path.
func (q *Queries) CountRawViews(ctx context.Context, day string, articleID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM page_hits
WHERE event_type = 'view' AND date(timestamp) = ?1 AND (?2 = 0 OR article_id = ?2)`,
		day, articleID).Scan(&n)
	return n, err
}

// HitSummary is the number of views and distinct visitors in a period.
type HitSummary struct {
	Views          int64
	UniqueVisitors int64
}

// SummarizeHits counts view events and distinct visitors of any event type
// from the day from onwards. An articleID of zero covers every path.
func (q *Queries) SummarizeHits(ctx context.Context, from string, articleID int64) (HitSummary, error) {
	var s HitSummary
	err := q.db.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(CASE WHEN event_type = 'view' THEN 1 ELSE 0 END), 0),
	COUNT(DISTINCT visitor_hash)
FROM page_hits
WHERE date(timestamp) >= ?1 AND (?2 = 0 OR article_id = ?2)`,
		from, articleID).Scan(&s.Views, &s.UniqueVisitors)
	return s, err
}

// TopArticle is an article ranked by views.
type TopArticle struct {
	ArticleID int64
	Title     string
	Slug      string
	Views     int64
}

// ListTopArticles returns the most viewed existing articles since from.
func (q *Queries) ListTopArticles(ctx context.Context, from string, limit int64) ([]TopArticle, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT a.id, a.title, a.slug, COUNT(h.id) AS views
FROM page_hits h
JOIN articles a ON a.id = h.article_id
WHERE h.event_type = 'view' AND date(h.timestamp) >= ?
GROUP BY a.id, a.title, a.slug
ORDER BY views DESC, a.id
LIMIT ?`, from, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TopArticle
	for rows.Next() {
		var t TopArticle
		if err := rows.Scan(&t.ArticleID, &t.Title, &t.Slug, &t.Views); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// Breakdown is a view count grouped by one attribute.
type Breakdown struct {
	Key   string
	Views int64
}

// ListDeviceBreakdown groups views since from by device type.
func (q *Queries) ListDeviceBreakdown(ctx context.Context, from string) ([]Breakdown, error) {
	return q.listBreakdown(ctx, `
SELECT device_type, COUNT(*) AS views
FROM page_hits
WHERE event_type = 'view' AND date(timestamp) >= ?
GROUP BY device_type
ORDER BY views DESC, device_type
LIMIT ?`, from, -1)
}

// ListCountryBreakdown groups views since from by country code.
func (q *Queries) ListCountryBreakdown(ctx context.Context, from string, limit int64) ([]Breakdown, error) {
	return q.listBreakdown(ctx, `
SELECT country, COUNT(*) AS views
FROM page_hits
WHERE event_type = 'view' AND date(timestamp) >= ?
GROUP BY country
ORDER BY views DESC, country
LIMIT ?`, from, limit)
}

func (q *Queries) listBreakdown(ctx context.Context, query string, args ...any) ([]Breakdown, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Breakdown
	for rows.Next() {
		var b Breakdown
		if err := rows.Scan(&b.Key, &b.Views); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
