// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/magazine-api/internal/content"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/util"
)

// Analytics limits.
const (
	DefaultStatsDays   = 30
	MaxStatsDays       = 365
	BackfillDays       = 30
	MaxMetadataSize    = 2048
	MaxTrackPathLength = 500
	topContentLimit    = 10
	topCountryLimit    = 10
	dayLayout          = "2006-01-02"
)

// CountryResolver maps a client IP to an ISO country code.
type CountryResolver interface {
	Country(ip string) string
}

// TrackInput is a client-side analytics event.
type TrackInput struct {
	ArticleID *int64          `json:"article_id"`
	Path      string          `json:"path"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Referrer  string          `json:"referrer"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Visitor describes the client that sent an event.
type Visitor struct {
	IP        string
	UserAgent string
}

// StatsSummary is the headline numbers of a stats response.
type StatsSummary struct {
	TotalViews     int64 `json:"total_views"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// ArticleStatsSummary is the headline numbers of one article.
type ArticleStatsSummary struct {
	Views          int64 `json:"views"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// ChartPoint is the number of views on one day.
type ChartPoint struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// TopContent is a most-viewed article.
type TopContent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Views int64  `json:"views"`
}

// DeviceShare is the number of views from one device type.
type DeviceShare struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// CountryShare is the number of views from one country.
type CountryShare struct {
	Code  string `json:"code"`
	Views int64  `json:"views"`
}

// Dashboard is the site-wide analytics overview.
type Dashboard struct {
	Period           string         `json:"period"`
	Summary          StatsSummary   `json:"summary"`
	ChartData        []ChartPoint   `json:"chart_data"`
	TopContent       []TopContent   `json:"top_content"`
	DeviceBreakdown  []DeviceShare  `json:"device_breakdown"`
	CountryBreakdown []CountryShare `json:"country_breakdown"`
}

// ArticleStats is the analytics of a single article.
type ArticleStats struct {
	Period    string              `json:"period"`
	Summary   ArticleStatsSummary `json:"summary"`
	ChartData []ChartPoint        `json:"chart_data"`
}

// AnalyticsService records page events and aggregates them.
type AnalyticsService struct {
	db      *sql.DB
	queries *store.Queries
	geo     CountryResolver
	salt    string
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. An empty salt is
// replaced by a random one, so visitor hashes do not survive restarts.
func NewAnalyticsService(db *sql.DB, geo CountryResolver, salt string, logger *slog.Logger) *AnalyticsService {
	if salt == "" {
		salt = randomSalt()
	}
	return &AnalyticsService{
		db:      db,
		queries: store.New(db),
		geo:     geo,
		salt:    salt,
		logger:  logger,
		now:     store.Now,
	}
}

func randomSalt() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// visitorHash is a daily-rotating pseudonymous visitor id.
func (s *AnalyticsService) visitorHash(ip, userAgent string, day string) string {
	sum := sha256.Sum256([]byte(util.AnonymizeIP(ip) + userAgent + day + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Track records an event. Bot traffic is dropped without error. A view of
// an article also increments its view counter.
func (s *AnalyticsService) Track(ctx context.Context, in TrackInput, v Visitor) error {
	eventType, err := model.ParseEventType(in.EventType)
	if err != nil {
		return &ValidationError{Details: []string{"event_type must be one of view, heartbeat, scroll"}}
	}

	path := content.SanitizeString(in.Path, MaxTrackPathLength)
	if path == "" && in.ArticleID != nil {
		path = "/articles/" + strconv.FormatInt(*in.ArticleID, 10)
	}

	det := &validator{}
	det.check(path != "", "path or article_id is required")
	det.check(in.ArticleID == nil || *in.ArticleID > 0, "article_id must be positive")
	metadata := "{}"
	if m := bytes.TrimSpace(in.Metadata); len(m) > 0 && !bytes.Equal(m, []byte("null")) {
		switch {
		case len(m) > MaxMetadataSize:
			det.add(fmt.Sprintf("metadata must be at most %d bytes", MaxMetadataSize))
		case m[0] != '{' || !json.Valid(m):
			det.add("metadata must be a JSON object")
		default:
			metadata = string(m)
		}
	}
	if err := det.err(); err != nil {
		return err
	}

	ua := useragent.Parse(v.UserAgent)
	if ua.Bot {
		s.logger.DebugContext(ctx, "ignoring bot event", "path", path)
		return nil
	}

	now := s.now()
	hit := store.CreatePageHitParams{
		ArticleID:     util.NullInt64FromPtr(in.ArticleID),
		Path:          path,
		VisitorHash:   s.visitorHash(v.IP, v.UserAgent, now.Format(dayLayout)),
		SessionID:     content.SanitizeString(in.SessionID, 64),
		DeviceType:    deviceType(ua),
		Browser:       orUnknown(ua.Name),
		OS:            orUnknown(ua.OS),
		Country:       s.geo.Country(v.IP),
		Referrer:      content.SanitizeString(in.Referrer, MaxTrackPathLength),
		EventType:     string(eventType),
		EventMetadata: metadata,
		Timestamp:     now,
	}

	return store.InTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.CreatePageHit(ctx, hit); err != nil {
			return fmt.Errorf("recording page hit: %w", err)
		}
		if eventType == model.EventView && in.ArticleID != nil {
			if _, err := q.IncrementArticleViews(ctx, *in.ArticleID); err != nil {
				return fmt.Errorf("incrementing article views: %w", err)
			}
		}
		return nil
	})
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return model.DeviceBot
	case ua.Tablet:
		return model.DeviceTablet
	case ua.Mobile:
		return model.DeviceMobile
	case ua.Desktop:
		return model.DeviceDesktop
	}
	return model.DeviceUnknown
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// ClampDays bounds a requested stats window.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultStatsDays
	}
	return min(days, MaxStatsDays)
}

// window returns the first day of a days-long window ending today and
// today itself, both as YYYY-MM-DD.
func (s *AnalyticsService) window(days int) (from, today time.Time) {
	now := s.now()
	today = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1)), today
}

func period(days int) string {
	return fmt.Sprintf("Last %d days", days)
}

// Dashboard returns site-wide statistics for the last days days.
func (s *AnalyticsService) Dashboard(ctx context.Context, days int) (*Dashboard, error) {
	days = ClampDays(days)
	from, today := s.window(days)
	fromDay := from.Format(dayLayout)

	summary, err := s.queries.SummarizeHits(ctx, fromDay, 0)
	if err != nil {
		return nil, fmt.Errorf("summarizing hits: %w", err)
	}
	chart, err := s.chart(ctx, from, today, 0)
	if err != nil {
		return nil, err
	}
	top, err := s.queries.ListTopArticles(ctx, fromDay, topContentLimit)
	if err != nil {
		return nil, fmt.Errorf("listing top articles: %w", err)
	}
	devices, err := s.queries.ListDeviceBreakdown(ctx, fromDay)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	countries, err := s.queries.ListCountryBreakdown(ctx, fromDay, topCountryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing countries: %w", err)
	}

	d := &Dashboard{
		Period:           period(days),
		Summary:          StatsSummary{TotalViews: summary.Views, UniqueVisitors: summary.UniqueVisitors},
		ChartData:        chart,
		TopContent:       make([]TopContent, 0, len(top)),
		DeviceBreakdown:  make([]DeviceShare, 0, len(devices)),
		CountryBreakdown: make([]CountryShare, 0, len(countries)),
	}
	for _, t := range top {
		d.TopContent = append(d.TopContent, TopContent{ID: t.ArticleID, Title: t.Title, Slug: t.Slug, Views: t.Views})
	}
	for _, b := range devices {
		d.DeviceBreakdown = append(d.DeviceBreakdown, DeviceShare{Name: orUnknown(b.Key), Value: b.Views})
	}
	for _, b := range countries {
		d.CountryBreakdown = append(d.CountryBreakdown, CountryShare{Code: orUnknown(b.Key), Views: b.Views})
	}
	return d, nil
}

// ArticleStats returns statistics of one article for the last days days.
func (s *AnalyticsService) ArticleStats(ctx context.Context, articleID int64, days int) (*ArticleStats, error) {
	if _, err := s.queries.GetArticle(ctx, articleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading article %d: %w", articleID, err)
	}

	days = ClampDays(days)
	from, today := s.window(days)

	summary, err := s.queries.SummarizeHits(ctx, from.Format(dayLayout), articleID)
	if err != nil {
		return nil, fmt.Errorf("summarizing hits: %w", err)
	}
	chart, err := s.chart(ctx, from, today, articleID)
	if err != nil {
		return nil, err
	}

	return &ArticleStats{
		Period:    period(days),
		Summary:   ArticleStatsSummary{Views: summary.Views, UniqueVisitors: summary.UniqueVisitors},
		ChartData: chart,
	}, nil
}

// chart builds one point per day from the rollup table, with today counted
// from raw hits since it is not rolled up yet. Days without views are zero.
func (s *AnalyticsService) chart(ctx context.Context, from, today time.Time, articleID int64) ([]ChartPoint, error) {
	byDay := make(map[string]int64)

	if from.Before(today) {
		yesterday := today.AddDate(0, 0, -1).Format(dayLayout)
		rows, err := s.queries.ListDailyViews(ctx, from.Format(dayLayout), yesterday, articleID)
		if err != nil {
			return nil, fmt.Errorf("listing daily views: %w", err)
		}
		for _, r := range rows {
			byDay[r.Date] = r.Views
		}
	}

	todayKey := today.Format(dayLayout)
	n, err := s.queries.CountRawViews(ctx, todayKey, articleID)
	if err != nil {
		return nil, fmt.Errorf("counting today's views: %w", err)
	}
	byDay[todayKey] = n

	var points []ChartPoint
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		points = append(points, ChartPoint{Date: key, Views: byDay[key]})
	}
	return points, nil
}

// RollupDays rebuilds the daily rollup of the last n days including today.
func (s *AnalyticsService) RollupDays(ctx context.Context, n int) error {
	_, today := s.window(1)
	for i := range n {
		day := today.AddDate(0, 0, -i).Format(dayLayout)
		err := store.InTx(ctx, s.db, func(q *store.Queries) error {
			return q.RollupPageHitDay(ctx, day)
		})
		if err != nil {
			return fmt.Errorf("rolling up %s: %w", day, err)
		}
	}
	s.logger.DebugContext(ctx, "page hits rolled up", "days", n)
	return nil
}

// RollupRecent rebuilds today and yesterday. It runs on a schedule.
func (s *AnalyticsService) RollupRecent(ctx context.Context) error {
	return s.RollupDays(ctx, 2)
}

// Backfill rebuilds the rollup of the last BackfillDays days.
func (s *AnalyticsService) Backfill(ctx context.Context) error {
	return s.RollupDays(ctx, BackfillDays)
}
