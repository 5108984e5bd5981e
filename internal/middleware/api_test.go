// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/olegiv/magazine-api/internal/testutil"
)

// simpleOKHandler returns an http.Handler that writes 200 OK.
var simpleOKHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// executeFrom sends a request with the given remote address.
func executeFrom(handler http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteAPIError(t *testing.T) {
	t.Run("without details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteAPIError(w, http.StatusNotFound, "Not found", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
	})

	t.Run("with details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteAPIError(w, http.StatusBadRequest, "Validation failed", []string{"Title is required"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Validation failed","details":["Title is required"]}`, w.Body.String())
	})
}

func TestLimiterCache(t *testing.T) {
	lc := newLimiterCache[string](1, 2)

	first := lc.get("a")
	assert.Same(t, first, lc.get("a"), "same key returns the same limiter")
	assert.NotSame(t, first, lc.get("b"))
	assert.Equal(t, 2, lc.size())

	assert.False(t, lc.clearIfExceeds(2))
	assert.True(t, lc.clearIfExceeds(1))
	assert.Equal(t, 0, lc.size())
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter("api", 0.001, 2, testutil.TestLoggerSilent())
	handler := rl.Middleware()(simpleOKHandler)

	for i := 0; i < 2; i++ {
		w := executeFrom(handler, http.MethodGet, "/api/articles", "203.0.113.1:1234")
		assert.Equal(t, http.StatusOK, w.Code, "request %d within burst", i+1)
	}

	w := executeFrom(handler, http.MethodGet, "/api/articles", "203.0.113.1:5678")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests, please slow down", decodeAPIError(t, w).Error)

	w = executeFrom(handler, http.MethodGet, "/api/articles", "203.0.113.2:1234")
	assert.Equal(t, http.StatusOK, w.Code, "other IPs have their own budget")
}

func TestRateLimiter_ExemptPaths(t *testing.T) {
	rl := NewRateLimiter("api", 0.001, 1, testutil.TestLoggerSilent(), "/health")
	handler := rl.Middleware()(simpleOKHandler)

	for i := 0; i < 5; i++ {
		w := executeFrom(handler, http.MethodGet, "/health/ready", "203.0.113.1:1")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, http.StatusOK, executeFrom(handler, http.MethodGet, "/api/articles", "203.0.113.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, executeFrom(handler, http.MethodGet, "/api/articles", "203.0.113.1:1").Code)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		limit rate.Limit
		want  string
	}{
		{0, "60"},
		{10, "1"},
		{1, "1"},
		{0.5, "2"},
		{0.1, "10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfter(tt.limit), "limit %v", tt.limit)
	}
}
