// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// CreateSubscriber inserts a subscriber and returns the stored row.
func (q *Queries) CreateSubscriber(ctx context.Context, email string, at time.Time) (Subscriber, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO subscribers (email, created_at) VALUES (?, ?)`, email, at)
	if err != nil {
		return Subscriber{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Subscriber{}, err
	}
	var s Subscriber
	err = q.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM subscribers WHERE id = ?`, id,
	).Scan(&s.ID, &s.Email, &s.CreatedAt)
	return s, err
}

// ListSubscribers returns a page of subscribers, newest first.
func (q *Queries) ListSubscribers(ctx context.Context, limit, offset int64) ([]Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, email, created_at FROM subscribers
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// CountSubscribers returns the number of subscribers.
func (q *Queries) CountSubscribers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}

// DeleteSubscriber removes a subscriber.
func (q *Queries) DeleteSubscriber(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
}
