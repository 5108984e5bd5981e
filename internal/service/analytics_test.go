// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/testutil"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	botUA    = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type staticGeo string

func (g staticGeo) Country(string) string { return string(g) }

func newAnalyticsFixture(t *testing.T) (*AnalyticsService, *store.Queries, int64) {
	t.Helper()
	db := testutil.MemoryDB(t)
	svc := NewAnalyticsService(db, staticGeo("DE"), "salt", testutil.TestLoggerSilent())

	now := store.Now()
	q := store.New(db)
	id, err := q.CreateArticle(context.Background(), store.CreateArticleParams{
		Title:     "Tracked",
		Content:   `{"blocks":[]}`,
		Tags:      "[]",
		Slug:      "tracked",
		Status:    "PUBLISHED",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return svc, q, id
}

func TestAnalyticsTrack_CountsViews(t *testing.T) {
	svc, q, id := newAnalyticsFixture(t)
	ctx := context.Background()
	visitor := Visitor{IP: "203.0.113.7", UserAgent: chromeUA}

	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id, EventType: "view"}, visitor))
	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id}, visitor))
	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id, EventType: "heartbeat"}, visitor))

	a, err := q.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.ViewsCount, "only view events count")
}

func TestAnalyticsTrack_Validation(t *testing.T) {
	svc, _, id := newAnalyticsFixture(t)
	ctx := context.Background()
	visitor := Visitor{IP: "203.0.113.7", UserAgent: chromeUA}

	tests := []struct {
		name  string
		input TrackInput
	}{
		{"bad event type", TrackInput{Path: "/", EventType: "click"}},
		{"no path or article", TrackInput{EventType: "view"}},
		{"metadata array", TrackInput{Path: "/", Metadata: json.RawMessage(`[1,2]`)}},
		{"metadata too large", TrackInput{Path: "/", Metadata: json.RawMessage(`{"x":"` + strings.Repeat("a", MaxMetadataSize) + `"}`)}},
		{"zero article", TrackInput{ArticleID: new(int64), Path: "/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			assert.ErrorAs(t, svc.Track(ctx, tt.input, visitor), &verr)
		})
	}

	assert.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id, Metadata: json.RawMessage(`{"depth":50}`), EventType: "scroll"}, visitor))
}

func TestAnalyticsTrack_IgnoresBots(t *testing.T) {
	svc, q, id := newAnalyticsFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id}, Visitor{IP: "203.0.113.9", UserAgent: botUA}))

	a, err := q.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.ViewsCount)
}

func TestAnalyticsVisitorHash(t *testing.T) {
	svc, _, _ := newAnalyticsFixture(t)

	h1 := svc.visitorHash("203.0.113.7", chromeUA, "2026-01-01")
	assert.Len(t, h1, 16)
	assert.Equal(t, h1, svc.visitorHash("203.0.113.99", chromeUA, "2026-01-01"), "same /24 is the same visitor")
	assert.NotEqual(t, h1, svc.visitorHash("203.0.113.7", chromeUA, "2026-01-02"), "hashes rotate daily")
	assert.NotEqual(t, h1, svc.visitorHash("203.0.113.7", iphoneUA, "2026-01-01"))
}

func TestAnalyticsDashboardAndRollup(t *testing.T) {
	svc, _, id := newAnalyticsFixture(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	desktop := Visitor{IP: "203.0.113.7", UserAgent: chromeUA}
	mobile := Visitor{IP: "198.51.100.4", UserAgent: iphoneUA}

	clock = clock.Add(-24 * time.Hour)
	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id}, desktop))
	clock = clock.Add(24 * time.Hour)
	require.NoError(t, svc.Track(ctx, TrackInput{ArticleID: &id}, desktop))
	require.NoError(t, svc.Track(ctx, TrackInput{Path: "/"}, mobile))
	require.NoError(t, svc.Track(ctx, TrackInput{Path: "/", EventType: "heartbeat"}, mobile))

	d, err := svc.Dashboard(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Last 7 days", d.Period)
	assert.Equal(t, int64(3), d.Summary.TotalViews)
	assert.Equal(t, int64(3), d.Summary.UniqueVisitors, "desktop hashes differ across days")
	require.Len(t, d.ChartData, 7)
	assert.Equal(t, "2026-03-04", d.ChartData[0].Date)
	assert.Equal(t, "2026-03-10", d.ChartData[6].Date)
	assert.Equal(t, int64(2), d.ChartData[6].Views, "today comes from raw hits")
	assert.Equal(t, int64(0), d.ChartData[5].Views, "yesterday is not rolled up yet")

	require.Len(t, d.TopContent, 1)
	assert.Equal(t, "tracked", d.TopContent[0].Slug)
	assert.Equal(t, int64(2), d.TopContent[0].Views)
	assert.Len(t, d.DeviceBreakdown, 2)
	require.Len(t, d.CountryBreakdown, 1)
	assert.Equal(t, CountryShare{Code: "DE", Views: 3}, d.CountryBreakdown[0])

	require.NoError(t, svc.RollupRecent(ctx))
	require.NoError(t, svc.RollupRecent(ctx), "rollup is idempotent")

	d, err = svc.Dashboard(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ChartData[5].Views)
	assert.Equal(t, int64(2), d.ChartData[6].Views)

	stats, err := svc.ArticleStats(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, "Last 2 days", stats.Period)
	assert.Equal(t, int64(2), stats.Summary.Views)
	assert.Equal(t, []ChartPoint{{Date: "2026-03-09", Views: 1}, {Date: "2026-03-10", Views: 1}}, stats.ChartData)

	_, err = svc.ArticleStats(ctx, id+100, 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, DefaultStatsDays, ClampDays(0))
	assert.Equal(t, DefaultStatsDays, ClampDays(-5))
	assert.Equal(t, 7, ClampDays(7))
	assert.Equal(t, MaxStatsDays, ClampDays(10000))
}
