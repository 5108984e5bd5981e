// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/olegiv/magazine-api/internal/store"
)

// SubscribersPerPage is the page size of the subscriber listing.
const SubscribersPerPage = 20

// MaxEmailLength is the longest accepted email address.
const MaxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// SubscriberView is the public representation of a subscriber.
type SubscriberView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriberList is one page of subscribers.
type SubscriberList struct {
	Subscribers []SubscriberView `json:"subscribers"`
	Total       int64            `json:"total"`
	Pages       int64            `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// SubscriberService manages newsletter subscriptions.
type SubscriberService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewSubscriberService creates a new SubscriberService.
func NewSubscriberService(db *sql.DB, logger *slog.Logger) *SubscriberService {
	return &SubscriberService{queries: store.New(db), logger: logger}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like a deliverable address.
func ValidEmail(email string) bool {
	return len(email) <= MaxEmailLength && emailPattern.MatchString(email)
}

// Subscribe registers an email address.
func (s *SubscriberService) Subscribe(ctx context.Context, email string) (*SubscriberView, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, &ValidationError{Details: []string{"Email is required"}}
	}
	if !ValidEmail(email) {
		return nil, &ValidationError{Details: []string{"Invalid email address"}}
	}

	sub, err := s.queries.CreateSubscriber(ctx, email, store.Now())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "Email already subscribed"}
		}
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}

	s.logger.InfoContext(ctx, "subscriber added", "subscriber_id", sub.ID)
	return &SubscriberView{ID: sub.ID, Email: sub.Email, CreatedAt: sub.CreatedAt}, nil
}

// List returns a page of subscribers, newest first.
func (s *SubscriberService) List(ctx context.Context, page int) (*SubscriberList, error) {
	page = max(page, 1)

	total, err := s.queries.CountSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting subscribers: %w", err)
	}
	rows, err := s.queries.ListSubscribers(ctx, SubscribersPerPage, int64((page-1)*SubscribersPerPage))
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}

	list := &SubscriberList{
		Subscribers: make([]SubscriberView, 0, len(rows)),
		Total:       total,
		Pages:       (total + SubscribersPerPage - 1) / SubscribersPerPage,
		CurrentPage: page,
	}
	for _, r := range rows {
		list.Subscribers = append(list.Subscribers, SubscriberView{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt})
	}
	return list, nil
}

// Unsubscribe removes a subscriber by id.
func (s *SubscriberService) Unsubscribe(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteSubscriber(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting subscriber %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.InfoContext(ctx, "subscriber removed", "subscriber_id", id)
	return nil
}
