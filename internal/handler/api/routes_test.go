// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/magazine-api/internal/auth"
	"github.com/olegiv/magazine-api/internal/cache"
	"github.com/olegiv/magazine-api/internal/logging"
	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/scheduler"
	"github.com/olegiv/magazine-api/internal/service"
	"github.com/olegiv/magazine-api/internal/testutil"
)

const (
	testSecret   = "router-Test-secret-32-bytes-long!"
	testPassword = "correct-horse-battery"
)

type noCountry struct{}

func (noCountry) Country(string) string { return "" }

type recordingNotifier struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNotifier) Notify(_ context.Context, paths ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, paths...)
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type testEnv struct {
	t          *testing.T
	db         *sql.DB
	router     http.Handler
	notifier   *recordingNotifier
	uploadsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MemoryDB(t)
	logger := testutil.TestLoggerSilent()
	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })

	notifier := &recordingNotifier{}
	uploadsDir := t.TempDir()
	tokens := auth.NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour)

	login := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), logger)
	t.Cleanup(login.Stop)

	analytics := service.NewAnalyticsService(db, noCountry{}, "test-salt", logger)
	sched := scheduler.New(logger)
	require.NoError(t, sched.AddJob("analytics_rollup", "5 * * * *", analytics.RollupRecent))

	h := NewHandler(Services{
		Articles:    service.NewArticleService(db, notifier, c, logger),
		Categories:  service.NewCategoryService(db, c, logger),
		Subscribers: service.NewSubscriberService(db, logger),
		Auth:        service.NewAuthService(db, tokens, logger),
		Analytics:   analytics,
		Media: service.NewMediaService(service.MediaConfig{
			UploadDir: uploadsDir,
			PublicURL: "http://api.test",
			MaxSize:   64 << 10,
		}, logger),
	}, login, false, logger)

	router := NewRouter(RouterConfig{
		Handler:       h,
		Health:        NewHealthHandler(db, uploadsDir, "test").WithCache(c).WithJobs(sched),
		UploadsDir:    uploadsDir,
		CORSOrigins:   []string{"http://localhost:3000"},
		IsDevelopment: true,
		RateLimit:     1000,
		RateBurst:     1000,
		CSRFKey:       bytes.Repeat([]byte("k"), 32),
		Logger:        logger,
	})

	return &testEnv{t: t, db: db, router: router, notifier: notifier, uploadsDir: uploadsDir}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// userToken creates a user with the given role and logs in.
func (e *testEnv) userToken(email string, role model.Role) string {
	e.t.Helper()
	testutil.CreateUser(e.t, e.db, email, testPassword, role)

	rec := e.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: testPassword})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/health/live"} {
		rec := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alive", decodeBody[StatusResponse](t, rec).Status)
	}

	rec := env.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decodeBody[ReadinessStatus](t, rec)
	assert.Equal(t, "ready", ready.Status)
	assert.Empty(t, ready.Checks, "anonymous callers get no details")
	assert.Nil(t, ready.Cache)
	assert.Empty(t, ready.Jobs)

	admin := env.userToken("admin@example.com", model.RoleAdmin)
	rec = env.do(http.MethodGet, "/health/ready?verbose=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready = decodeBody[ReadinessStatus](t, rec)
	assert.Equal(t, "test", ready.Version)
	assert.Equal(t, "healthy", ready.Checks["database"].Status)
	assert.NotNil(t, ready.System)
	assert.NotNil(t, ready.Cache)
	require.Len(t, ready.Jobs, 1)
	assert.Equal(t, "analytics_rollup", ready.Jobs[0].Name)
	assert.Equal(t, "5 * * * *", ready.Jobs[0].Schedule)
}

func TestHealthReady_DatabaseDown(t *testing.T) {
	db := testutil.MemoryDB(t)
	h := NewHealthHandler(db, t.TempDir(), "test")
	require.NoError(t, db.Close())

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decodeBody[ReadinessStatus](t, rec).Status)
}

func TestSecurityHeadersOnAPI(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/categories", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decodeError(t, rec).Error)
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "user@example.com", testPassword, model.RoleViewer)

	unknown := env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ghost@example.com", Password: testPassword})
	wrong := env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "user@example.com", Password: "nope"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestLogin_SetsRefreshCookie(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "editor@example.com", testPassword, model.RoleEditor)

	rec := env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "editor@example.com", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[LoginResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(15*60), resp.ExpiresIn)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, RefreshCookiePath, refresh.Path)
	assert.Equal(t, http.SameSiteLaxMode, refresh.SameSite)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(refresh)
	refreshRec := httptest.NewRecorder()
	env.router.ServeHTTP(refreshRec, req)
	require.Equal(t, http.StatusOK, refreshRec.Code, refreshRec.Body.String())
	token := decodeBody[TokenResponse](t, refreshRec).AccessToken

	me := env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "editor@example.com", decodeBody[UserResponse](t, me).User.Email)
}

func TestLogin_Lockout(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "user@example.com", testPassword, model.RoleViewer)

	var rec *httptest.ResponseRecorder
	for i := 0; i < middleware.DefaultLoginProtectionConfig().MaxFailedAttempts; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"user@example.com","password":"bad"}`))
		req.RemoteAddr = fmt.Sprintf("198.51.100.%d:1234", i+1)
		rec = httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "user@example.com", Password: testPassword})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLogin_LogsRemainingAttempts(t *testing.T) {
	db := testutil.MemoryDB(t)
	testutil.CreateUser(t, db, "user@example.com", testPassword, model.RoleViewer)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := middleware.DefaultLoginProtectionConfig()
	login := middleware.NewLoginProtection(cfg, testutil.TestLoggerSilent())
	t.Cleanup(login.Stop)

	tokens := auth.NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour)
	h := NewHandler(Services{Auth: service.NewAuthService(db, tokens, logger)}, login, false, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"bad"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, buf.String(), "failed login attempt")
	assert.Contains(t, buf.String(), fmt.Sprintf("remaining_attempts=%d", cfg.MaxFailedAttempts-1))
}

func TestCreateArticle_LoggedOnceWithUser(t *testing.T) {
	db := testutil.MemoryDB(t)
	user := testutil.CreateUser(t, db, "editor@example.com", testPassword, model.RoleEditor)

	var buf bytes.Buffer
	logger := slog.New(logging.NewRequestHandler(slog.NewTextHandler(&buf, nil)))
	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })
	h := NewHandler(Services{
		Articles: service.NewArticleService(db, &recordingNotifier{}, c, logger),
	}, nil, false, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(`{"title":"Logged"}`))
	req = req.WithContext(middleware.WithIdentity(req.Context(), &service.Identity{UserID: user.ID, Role: model.RoleEditor}))
	rec := httptest.NewRecorder()
	h.CreateArticle(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "article created"))
	assert.Contains(t, buf.String(), fmt.Sprintf("user_id=%d", user.ID))
}

func TestRefresh_MissingCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/auth/refresh", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token missing", decodeError(t, rec).Error)
}

func TestLogout_RejectsCrossSite(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, RefreshCookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.userToken("viewer@example.com", model.RoleViewer)

	rec := env.do(http.MethodPost, "/api/auth/change-password", token,
		ChangePasswordRequest{CurrentPassword: "wrong-password", NewPassword: "another-good-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect password", decodeError(t, rec).Error)

	rec = env.do(http.MethodPost, "/api/auth/change-password", token,
		ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "another-good-one"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "viewer@example.com", Password: "another-good-one"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.userToken("viewer@example.com", model.RoleViewer)
	editor := env.userToken("editor@example.com", model.RoleEditor)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"create article anonymous", http.MethodPost, "/api/articles", "", http.StatusUnauthorized},
		{"create article bad token", http.MethodPost, "/api/articles", "garbage", http.StatusUnauthorized},
		{"create article viewer", http.MethodPost, "/api/articles", viewer, http.StatusForbidden},
		{"delete article editor", http.MethodDelete, "/api/articles/1", editor, http.StatusForbidden},
		{"delete category editor", http.MethodDelete, "/api/categories/1", editor, http.StatusForbidden},
		{"dashboard viewer", http.MethodGet, "/api/analytics/dashboard", viewer, http.StatusForbidden},
		{"subscribers editor", http.MethodGet, "/api/subscribers", editor, http.StatusForbidden},
		{"upload anonymous", http.MethodPost, "/api/upload", "", http.StatusUnauthorized},
		{"me anonymous", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, map[string]string{"title": "x"})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeError(t, rec).Error)
		})
	}
}

func TestArticleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	editor := env.userToken("editor@example.com", model.RoleEditor)
	admin := env.userToken("admin@example.com", model.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/articles", editor, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	verr := decodeError(t, rec)
	assert.Equal(t, "Validation failed", verr.Error)
	assert.Contains(t, verr.Details, "Title is required")

	var slugs []string
	var firstID int64
	for i := 0; i < 2; i++ {
		rec = env.do(http.MethodPost, "/api/articles", editor, map[string]any{
			"title":  "Hello World",
			"status": "PUBLISHED",
			"tags":   []string{"go"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		a := decodeBody[service.ArticleView](t, rec)
		slugs = append(slugs, a.Slug)
		if firstID == 0 {
			firstID = a.ID
		}
	}
	assert.Equal(t, []string{"hello-world", "hello-world-1"}, slugs)
	assert.Contains(t, env.notifier.seen(), "/articles/hello-world")

	rec = env.do(http.MethodGet, "/api/articles/hello-world", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeBody[service.ArticleView](t, rec).ViewsCount)

	rec = env.do(http.MethodPost, "/api/analytics/track", "", map[string]any{
		"article_id": firstID,
		"event_type": "view",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", decodeBody[StatusResponse](t, rec).Status)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/articles/%d", firstID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decodeBody[service.ArticleView](t, rec).ViewsCount)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/articles/%d", firstID), editor, map[string]any{"status": "DRAFT"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusDraft, decodeBody[service.ArticleView](t, rec).Status)

	rec = env.do(http.MethodGet, "/api/articles/hello-world", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are hidden from the public")
	rec = env.do(http.MethodGet, "/api/articles/hello-world", editor, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "editors see drafts")

	rec = env.do(http.MethodGet, "/api/articles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[service.ArticleList](t, rec)
	assert.Equal(t, int64(1), list.Total)

	rec = env.do(http.MethodGet, "/api/articles/hello-world-1/related", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]service.ArticleSummary](t, rec))

	rec = env.do(http.MethodGet, "/api/articles?status=DRAFT", editor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeBody[service.ArticleList](t, rec).Total)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/articles/%d", firstID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Article deleted", decodeBody[MessageResponse](t, rec).Message)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/articles/%d", firstID), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/articles/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	editor := env.userToken("editor@example.com", model.RoleEditor)
	admin := env.userToken("admin@example.com", model.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/categories", editor, service.CategoryInput{Name: "Culture"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[service.CategoryView](t, rec)
	assert.Equal(t, "culture", created.Slug)

	rec = env.do(http.MethodPost, "/api/categories", editor, service.CategoryInput{Name: "Culture"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/categories", editor, service.CategoryInput{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody[[]service.CategoryView](t, rec)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(0), cats[0].Count)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category deleted", decodeBody[MessageResponse](t, rec).Message)
}

func TestSubscribers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.userToken("admin@example.com", model.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/subscribers", "", SubscribeRequest{Email: "Reader@Example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[service.SubscriberView](t, rec)
	assert.Equal(t, "reader@example.com", sub.Email)

	rec = env.do(http.MethodPost, "/api/subscribers", "", SubscribeRequest{Email: "reader@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/subscribers", "", SubscribeRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/subscribers?page=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[service.SubscriberList](t, rec)
	assert.Equal(t, int64(1), list.Total)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/subscribers/%d", sub.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Subscriber removed", decodeBody[MessageResponse](t, rec).Message)
}

func TestAnalyticsDashboard(t *testing.T) {
	env := newTestEnv(t)
	editor := env.userToken("editor@example.com", model.RoleEditor)

	rec := env.do(http.MethodPost, "/api/analytics/track", "", map[string]any{"path": "/", "event_type": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/analytics/dashboard?days=7", editor, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/analytics/article/999", editor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (e *testEnv) upload(token, field, filename string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	body, contentType := multipartBody(e.t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	editor := env.userToken("editor@example.com", model.RoleEditor)

	rec := env.upload(editor, "image", "My Photo.png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[UploadResponse](t, rec)
	assert.Equal(t, 1, resp.Success)
	assert.Equal(t, "image", resp.Type)
	assert.True(t, strings.HasPrefix(resp.File.URL, "http://api.test/uploads/my-photo_"), resp.File.URL)
	assert.True(t, strings.HasSuffix(resp.File.Name, ".png"))

	_, err := os.Stat(filepath.Join(env.uploadsDir, resp.File.Name))
	require.NoError(t, err)

	served := env.do(http.MethodGet, "/uploads/"+resp.File.Name, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "nosniff", served.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, served.Header().Get("Content-Security-Policy"), "sandbox")

	listing := env.do(http.MethodGet, "/uploads/", "", nil)
	assert.Equal(t, http.StatusNotFound, listing.Code)
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)
	editor := env.userToken("editor@example.com", model.RoleEditor)

	rec := env.upload(editor, "file", "script.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(editor, "image", "fake.png", []byte("not a png at all"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Details, "File is not a valid image")

	rec = env.upload(editor, "other", "photo.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file part", decodeError(t, rec).Error)

	rec = env.upload(editor, "file", "big.mp4", bytes.Repeat([]byte{0}, 80<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+editor)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	db := testutil.MemoryDB(t)
	logger := testutil.TestLoggerSilent()
	h := NewHandler(Services{}, nil, false, logger)

	router := NewRouter(RouterConfig{
		Handler:   h,
		Health:    NewHealthHandler(db, t.TempDir(), "test"),
		RateLimit: 1,
		RateBurst: 1,
		CSRFKey:   bytes.Repeat([]byte("k"), 32),
		Logger:    logger,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are exempt")
}
