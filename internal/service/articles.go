// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/magazine-api/internal/cache"
	"github.com/olegiv/magazine-api/internal/content"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/util"
)

// Field limits for article input.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 1000
	MaxURLLength         = 500
	MaxTags              = 20
	MaxTagLength         = 50
)

// Pagination defaults for article listings.
const (
	DefaultPageSize     = 20
	MaxPageSize         = 100
	DefaultRelatedLimit = 3
	MaxRelatedLimit     = 12
)

// maxWriteAttempts bounds the retries after a lost slug race.
const maxWriteAttempts = 3

// Cache key prefixes cleared by content writes.
const (
	articlesCachePrefix   = "articles:"
	categoriesCachePrefix = "categories:"
)

// publishedAtLayouts are the accepted published_at formats.
var publishedAtLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// Revalidator tells the frontend which paths to rebuild.
type Revalidator interface {
	Notify(ctx context.Context, paths ...string)
}

// Optional is a JSON field that distinguishes an absent key from an
// explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// UnmarshalJSON marks the field as present and decodes null as a nil Value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ArticleInput is the write payload of an article. Nil fields are left
// unchanged on update.
type ArticleInput struct {
	Title           *string         `json:"title"`
	Subtitle        *string         `json:"subtitle"`
	Description     *string         `json:"description"`
	Content         json.RawMessage `json:"content"`
	CoverImage      *string         `json:"cover_image"`
	Tags            *[]string       `json:"tags"`
	Slug            *string         `json:"slug"`
	Status          *string         `json:"status"`
	CategoryID      Optional[int64] `json:"category_id"`
	ReadTime        *int            `json:"read_time"`
	MetaTitle       *string         `json:"meta_title"`
	MetaDescription *string         `json:"meta_description"`
	OgImage         *string         `json:"og_image"`
	PublishedAt     *string         `json:"published_at"`
}

// hasContent reports whether content was supplied with a non-null value.
func (in ArticleInput) hasContent() bool {
	c := bytes.TrimSpace(in.Content)
	return len(c) > 0 && !bytes.Equal(c, []byte("null"))
}

// CategoryRef is the embedded category of an article.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ArticleSummary is the list projection of an article, without content.
type ArticleSummary struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Slug            string       `json:"slug"`
	Subtitle        *string      `json:"subtitle"`
	Description     *string      `json:"description"`
	CoverImage      *string      `json:"cover_image"`
	Tags            []string     `json:"tags"`
	Status          model.Status `json:"status"`
	CategoryID      *int64       `json:"category_id"`
	Category        *CategoryRef `json:"category"`
	AuthorID        *int64       `json:"author_id"`
	ReadTime        *int64       `json:"read_time"`
	ViewsCount      int64        `json:"views_count"`
	MetaTitle       *string      `json:"meta_title"`
	MetaDescription *string      `json:"meta_description"`
	OgImage         *string      `json:"og_image"`
	PublishedAt     *time.Time   `json:"published_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ArticleView is the full representation of an article.
type ArticleView struct {
	ArticleSummary
	Content json.RawMessage `json:"content"`
}

// ArticleQuery selects a page of articles.
type ArticleQuery struct {
	Status   string
	Category string
	Tag      string
	Page     int
	Limit    int
	Offset   int
	// AnyStatus lets privileged callers see drafts and archived articles.
	AnyStatus bool
}

// ArticleList is one page of articles.
type ArticleList struct {
	Articles    []ArticleSummary `json:"articles"`
	Total       int64            `json:"total"`
	Pages       int64            `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// ArticleService runs the article write pipeline and serves article reads.
type ArticleService struct {
	db       *sql.DB
	queries  *store.Queries
	slugs    *SlugResolver
	notifier Revalidator
	cache    cache.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// NewArticleService creates a new ArticleService.
func NewArticleService(db *sql.DB, notifier Revalidator, c cache.Cache, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		db:       db,
		queries:  store.New(db),
		slugs:    NewSlugResolver(),
		notifier: notifier,
		cache:    c,
		logger:   logger,
		now:      store.Now,
	}
}

// articleFields is validated, sanitized input ready for persistence.
type articleFields struct {
	status      *model.Status
	publishedAt *time.Time
}

// validate checks raw input and collects every violation.
func (s *ArticleService) validate(ctx context.Context, in ArticleInput, creating bool) (articleFields, error) {
	var f articleFields
	v := &validator{}

	switch {
	case in.Title == nil:
		v.check(!creating, "Title is required")
	case strings.TrimSpace(*in.Title) == "":
		v.add("Title is required")
	default:
		v.check(utf8.RuneCountInString(*in.Title) <= MaxTitleLength,
			fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}

	checkLen := func(p *string, name string, max int) {
		if p != nil && utf8.RuneCountInString(*p) > max {
			v.add(fmt.Sprintf("%s must be at most %d characters", name, max))
		}
	}
	checkLen(in.Subtitle, "Subtitle", MaxTitleLength)
	checkLen(in.MetaTitle, "Meta title", MaxTitleLength)
	checkLen(in.Description, "Description", MaxDescriptionLength)
	checkLen(in.MetaDescription, "Meta description", MaxDescriptionLength)
	checkLen(in.CoverImage, "Cover image", MaxURLLength)
	checkLen(in.OgImage, "OG image", MaxURLLength)

	if in.Slug != nil && *in.Slug != "" && !util.MatchesSlugPattern(*in.Slug) {
		v.add("Slug can only contain lowercase letters, numbers, and hyphens")
	}

	if in.Tags != nil {
		tags := *in.Tags
		v.check(len(tags) <= MaxTags, fmt.Sprintf("Cannot have more than %d tags", MaxTags))
		for _, tag := range tags {
			if utf8.RuneCountInString(tag) > MaxTagLength {
				v.add(fmt.Sprintf("Tags must be at most %d characters", MaxTagLength))
				break
			}
		}
	}

	if in.hasContent() {
		var probe struct {
			Blocks []json.RawMessage `json:"blocks"`
		}
		if json.Unmarshal(in.Content, &probe) == nil && len(probe.Blocks) > content.MaxBlocks {
			v.add(fmt.Sprintf("Content cannot exceed %d blocks", content.MaxBlocks))
		}
	}

	if in.Status != nil {
		st, err := model.ParseStatus(*in.Status)
		if err != nil {
			v.add("Status must be one of DRAFT, PUBLISHED, ARCHIVED")
		} else {
			f.status = &st
		}
	}

	if in.ReadTime != nil && *in.ReadTime < 1 {
		v.add("Read time must be at least 1 minute")
	}

	if in.CategoryID.Set && in.CategoryID.Value != nil {
		exists, err := s.queries.CategoryExists(ctx, *in.CategoryID.Value)
		if err != nil {
			return f, fmt.Errorf("checking category: %w", err)
		}
		v.check(exists, "Category does not exist")
	}

	if in.PublishedAt != nil {
		f.publishedAt = parsePublishedAt(*in.PublishedAt)
	}

	return f, v.err()
}

// parsePublishedAt returns nil for values in no accepted layout.
func parsePublishedAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func sanitizeTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = content.SanitizeString(t, MaxTagLength); t != "" {
			clean = append(clean, t)
		}
	}
	data, _ := json.Marshal(clean)
	return string(data)
}

func nullText(p *string, max int) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return util.NullStringFromValue(content.SanitizeString(*p, max))
}

func nullReadTime(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// sanitizeContent returns the stored JSON of the sanitized document and
// its estimated read time.
func sanitizeContent(raw json.RawMessage) (string, *int, error) {
	doc := content.Sanitize(raw)
	data, err := doc.JSON()
	if err != nil {
		return "", nil, fmt.Errorf("encoding content: %w", err)
	}
	return string(data), content.EstimateReadTime(doc), nil
}

// Create runs the write pipeline for a new article.
func (s *ArticleService) Create(ctx context.Context, authorID int64, in ArticleInput) (*ArticleView, error) {
	fields, err := s.validate(ctx, in, true)
	if err != nil {
		return nil, err
	}

	body, estimated, err := sanitizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	readTime := in.ReadTime
	if readTime == nil {
		readTime = estimated
	}

	status := model.StatusDraft
	if fields.status != nil {
		status = *fields.status
	}
	now := s.now()
	var publishedAt *time.Time
	if status == model.StatusPublished {
		publishedAt = fields.publishedAt
		if publishedAt == nil {
			publishedAt = &now
		}
	}

	tags := "[]"
	if in.Tags != nil {
		tags = sanitizeTags(*in.Tags)
	}

	title := content.SanitizeString(*in.Title, MaxTitleLength)
	if title == "" {
		return nil, &ValidationError{Details: []string{"Title is required"}}
	}
	candidate := title
	if in.Slug != nil && *in.Slug != "" {
		candidate = *in.Slug
	}

	params := store.CreateArticleParams{
		Title:           title,
		Subtitle:        nullText(in.Subtitle, MaxTitleLength),
		Description:     nullText(in.Description, MaxDescriptionLength),
		Content:         body,
		CoverImage:      nullText(in.CoverImage, MaxURLLength),
		Tags:            tags,
		Status:          string(status),
		ReadTime:        nullReadTime(readTime),
		MetaTitle:       nullText(in.MetaTitle, MaxTitleLength),
		MetaDescription: nullText(in.MetaDescription, MaxDescriptionLength),
		OgImage:         nullText(in.OgImage, MaxURLLength),
		PublishedAt:     util.NullTimeFromPtr(publishedAt),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.CategoryID.Value != nil {
		params.CategoryID = sql.NullInt64{Int64: *in.CategoryID.Value, Valid: true}
	}
	if authorID > 0 {
		params.AuthorID = sql.NullInt64{Int64: authorID, Valid: true}
	}

	var id int64
	err = s.write(ctx, func(q *store.Queries) error {
		slug, provisional, err := s.slugs.Resolve(ctx, q, candidate, 0)
		if err != nil {
			return err
		}
		params.Slug = slug
		id, err = q.CreateArticle(ctx, params)
		if err != nil {
			return slugConflict(err, "creating article")
		}
		if provisional {
			final, _, err := s.slugs.Resolve(ctx, q, fallbackSlug(id), id)
			if err != nil {
				return err
			}
			if err := q.UpdateArticleSlug(ctx, id, final); err != nil {
				return slugConflict(err, "finalising slug")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "article created", "article_id", id, "slug", view.Slug, "status", view.Status)
	s.afterWrite(ctx, view.Status == model.StatusPublished, view.Slug)
	return view, nil
}

// Update applies a partial update to an article.
func (s *ArticleService) Update(ctx context.Context, id int64, in ArticleInput) (*ArticleView, error) {
	existing, err := s.queries.GetArticle(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading article %d: %w", id, err)
	}

	fields, err := s.validate(ctx, in, false)
	if err != nil {
		return nil, err
	}

	params := store.UpdateArticleParams{
		ID:              existing.ID,
		Title:           existing.Title,
		Subtitle:        existing.Subtitle,
		Description:     existing.Description,
		Content:         existing.Content,
		CoverImage:      existing.CoverImage,
		Tags:            existing.Tags,
		Slug:            existing.Slug,
		Status:          existing.Status,
		ReadTime:        existing.ReadTime,
		MetaTitle:       existing.MetaTitle,
		MetaDescription: existing.MetaDescription,
		OgImage:         existing.OgImage,
		CategoryID:      existing.CategoryID,
		PublishedAt:     existing.PublishedAt,
		UpdatedAt:       s.now(),
	}

	if in.Title != nil {
		params.Title = content.SanitizeString(*in.Title, MaxTitleLength)
		if params.Title == "" {
			return nil, &ValidationError{Details: []string{"Title is required"}}
		}
	}
	if in.Subtitle != nil {
		params.Subtitle = nullText(in.Subtitle, MaxTitleLength)
	}
	if in.Description != nil {
		params.Description = nullText(in.Description, MaxDescriptionLength)
	}
	if in.CoverImage != nil {
		params.CoverImage = nullText(in.CoverImage, MaxURLLength)
	}
	if in.MetaTitle != nil {
		params.MetaTitle = nullText(in.MetaTitle, MaxTitleLength)
	}
	if in.MetaDescription != nil {
		params.MetaDescription = nullText(in.MetaDescription, MaxDescriptionLength)
	}
	if in.OgImage != nil {
		params.OgImage = nullText(in.OgImage, MaxURLLength)
	}
	if in.Tags != nil {
		params.Tags = sanitizeTags(*in.Tags)
	}
	if in.CategoryID.Set {
		params.CategoryID = util.NullInt64FromPtr(in.CategoryID.Value)
	}

	if in.hasContent() {
		body, estimated, err := sanitizeContent(in.Content)
		if err != nil {
			return nil, err
		}
		params.Content = body
		if in.ReadTime == nil {
			params.ReadTime = nullReadTime(estimated)
		}
	}
	if in.ReadTime != nil {
		params.ReadTime = nullReadTime(in.ReadTime)
	}

	if fields.status != nil {
		params.Status = string(*fields.status)
	}
	// published_at is set once, on the first transition to PUBLISHED.
	if params.Status == string(model.StatusPublished) && !existing.PublishedAt.Valid {
		params.PublishedAt = sql.NullTime{Time: params.UpdatedAt, Valid: true}
		if fields.publishedAt != nil {
			params.PublishedAt.Time = *fields.publishedAt
		}
	}

	slugSupplied := in.Slug != nil && *in.Slug != ""
	err = s.write(ctx, func(q *store.Queries) error {
		if slugSupplied {
			slug, provisional, err := s.slugs.Resolve(ctx, q, *in.Slug, id)
			if err != nil {
				return err
			}
			if provisional {
				slug = existing.Slug
			}
			params.Slug = slug
		}
		n, err := q.UpdateArticle(ctx, params)
		if err != nil {
			return slugConflict(err, "updating article")
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "article updated", "article_id", id, "slug", view.Slug, "status", view.Status)

	wasPublished := existing.Status == string(model.StatusPublished)
	isPublished := view.Status == model.StatusPublished
	slugs := []string{view.Slug}
	if existing.Slug != view.Slug {
		slugs = append(slugs, existing.Slug)
	}
	s.afterWrite(ctx, isPublished || wasPublished, slugs...)
	return view, nil
}

// Delete hard-deletes an article.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	existing, err := s.queries.GetArticle(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading article %d: %w", id, err)
	}

	n, err := s.queries.DeleteArticle(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting article %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "article deleted", "article_id", id, "slug", existing.Slug)
	s.afterWrite(ctx, existing.Status == string(model.StatusPublished), existing.Slug)
	return nil
}

// Get returns an article by numeric id or slug and counts the read.
// Unpublished articles are only visible when anyStatus is set.
func (s *ArticleService) Get(ctx context.Context, idOrSlug string, anyStatus bool) (*ArticleView, error) {
	a, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !anyStatus && a.Status != string(model.StatusPublished) {
		return nil, ErrNotFound
	}

	n, err := s.queries.IncrementArticleViews(ctx, a.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "incrementing article views failed", "article_id", a.ID, "error", err)
	} else if n > 0 {
		a.ViewsCount++
	}

	return toArticleView(a), nil
}

// Related returns published articles sharing the category of idOrSlug.
func (s *ArticleService) Related(ctx context.Context, idOrSlug string, limit int) ([]ArticleSummary, error) {
	a, err := s.find(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if a.Status != string(model.StatusPublished) {
		return nil, ErrNotFound
	}

	out := []ArticleSummary{}
	if !a.CategoryID.Valid {
		return out, nil
	}

	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	limit = min(limit, MaxRelatedLimit)

	rows, err := s.queries.ListRelatedArticles(ctx, a.CategoryID.Int64, a.ID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing related articles: %w", err)
	}
	for _, r := range rows {
		out = append(out, toArticleSummary(r))
	}
	return out, nil
}

// List returns a page of articles. Public listings are cached.
func (s *ArticleService) List(ctx context.Context, aq ArticleQuery) (*ArticleList, error) {
	filter := store.ArticleFilter{
		CategorySlug: util.NullStringFromValue(strings.TrimSpace(aq.Category)),
		Tag:          util.NullStringFromValue(strings.TrimSpace(aq.Tag)),
	}

	switch {
	case !aq.AnyStatus:
		filter.Status = sql.NullString{String: string(model.StatusPublished), Valid: true}
	case aq.Status != "":
		st, err := model.ParseStatus(aq.Status)
		if err != nil {
			return nil, &ValidationError{Details: []string{"Status must be one of DRAFT, PUBLISHED, ARCHIVED"}}
		}
		filter.Status = sql.NullString{String: string(st), Valid: true}
	}

	limit := aq.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	page := min(max(aq.Page, 1), math.MaxInt32/limit)
	offset := (page - 1) * limit
	if aq.Offset > 0 {
		offset = aq.Offset
		page = offset/limit + 1
	}

	load := func() (*ArticleList, error) {
		return s.list(ctx, filter, limit, offset, page)
	}
	if aq.AnyStatus {
		return load()
	}

	key := fmt.Sprintf("%slist:category=%s&tag=%s&limit=%d&offset=%d",
		articlesCachePrefix, filter.CategorySlug.String, filter.Tag.String, limit, offset)
	return cache.Remember(ctx, s.cache, s.logger, key, load)
}

func (s *ArticleService) list(ctx context.Context, filter store.ArticleFilter, limit, offset, page int) (*ArticleList, error) {
	total, err := s.queries.CountArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	rows, err := s.queries.ListArticles(ctx, store.ListArticlesParams{
		ArticleFilter: filter,
		Limit:         int64(limit),
		Offset:        int64(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	list := &ArticleList{
		Articles:    make([]ArticleSummary, 0, len(rows)),
		Total:       total,
		Pages:       (total + int64(limit) - 1) / int64(limit),
		CurrentPage: page,
	}
	for _, r := range rows {
		list.Articles = append(list.Articles, toArticleSummary(r))
	}
	return list, nil
}

// find resolves a numeric id first and falls back to the slug.
func (s *ArticleService) find(ctx context.Context, idOrSlug string) (store.ArticleWithCategory, error) {
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil && id > 0 {
		a, err := s.queries.GetArticleWithCategory(ctx, id)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return a, fmt.Errorf("loading article %d: %w", id, err)
		}
	}

	a, err := s.queries.GetArticleWithCategoryBySlug(ctx, idOrSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("loading article %q: %w", idOrSlug, err)
	}
	return a, nil
}

func (s *ArticleService) load(ctx context.Context, id int64) (*ArticleView, error) {
	a, err := s.queries.GetArticleWithCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reloading article %d: %w", id, err)
	}
	return toArticleView(a), nil
}

// write runs fn in a transaction, retrying when a concurrent writer took
// the resolved slug first.
func (s *ArticleService) write(ctx context.Context, fn func(q *store.Queries) error) error {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err := store.InTx(ctx, s.db, fn)
		if !errors.Is(err, errSlugConflict) {
			return err
		}
		s.logger.WarnContext(ctx, "slug conflict, retrying", "attempt", attempt)
	}
	return &ConflictError{Message: "Could not assign a unique slug, please retry"}
}

// slugConflict maps a unique violation on articles.slug to errSlugConflict.
func slugConflict(err error, action string) error {
	if store.UniqueViolationColumn(err) == "articles.slug" {
		return errSlugConflict
	}
	return fmt.Errorf("%s: %w", action, err)
}

// afterWrite clears cached listings and, when the change is visible on the
// site, revalidates the listing pages and the given article slugs.
func (s *ArticleService) afterWrite(ctx context.Context, visible bool, slugs ...string) {
	cache.Invalidate(ctx, s.cache, s.logger, articlesCachePrefix, categoriesCachePrefix)
	if !visible {
		return
	}
	paths := []string{"/", "/articles"}
	for _, slug := range slugs {
		paths = append(paths, ArticlePath(slug))
	}
	s.notifier.Notify(ctx, paths...)
}

// ArticlePath returns the frontend path of an article.
func ArticlePath(slug string) string {
	return "/articles/" + slug
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func toArticleSummary(a store.ArticleWithCategory) ArticleSummary {
	sum := ArticleSummary{
		ID:              a.ID,
		Title:           a.Title,
		Slug:            a.Slug,
		Subtitle:        nullStringPtr(a.Subtitle),
		Description:     nullStringPtr(a.Description),
		CoverImage:      nullStringPtr(a.CoverImage),
		Tags:            decodeTags(a.Tags),
		Status:          model.Status(a.Status),
		CategoryID:      util.PtrFromNullInt64(a.CategoryID),
		AuthorID:        util.PtrFromNullInt64(a.AuthorID),
		ReadTime:        util.PtrFromNullInt64(a.ReadTime),
		ViewsCount:      a.ViewsCount,
		MetaTitle:       nullStringPtr(a.MetaTitle),
		MetaDescription: nullStringPtr(a.MetaDescription),
		OgImage:         nullStringPtr(a.OgImage),
		PublishedAt:     util.PtrFromNullTime(a.PublishedAt),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.CategoryID.Valid && a.CategorySlug.Valid {
		sum.Category = &CategoryRef{ID: a.CategoryID.Int64, Name: a.CategoryName.String, Slug: a.CategorySlug.String}
	}
	return sum
}

func toArticleView(a store.ArticleWithCategory) *ArticleView {
	body := json.RawMessage(a.Content)
	if !json.Valid(body) {
		body = json.RawMessage(`{"blocks":[]}`)
	}
	return &ArticleView{ArticleSummary: toArticleSummary(a), Content: body}
}
