// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User is a row of the users table.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string
	IsActive     bool
	LastLogin    sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category is a row of the categories table.
type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryWithCount is a category with its number of articles.
type CategoryWithCount struct {
	Category
	ArticleCount int64
}

// Article is a row of the articles table. Content and Tags hold JSON text.
type Article struct {
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
	AuthorID        sql.NullInt64
	ViewsCount      int64
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ArticleWithCategory is an article joined with its category name and slug.
type ArticleWithCategory struct {
	Article
	CategoryName sql.NullString
	CategorySlug sql.NullString
}

// Subscriber is a row of the subscribers table.
type Subscriber struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// PageHit is a row of the page_hits table.
type PageHit struct {
	ID            int64
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
