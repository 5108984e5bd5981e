// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/magazine-api/internal/testutil"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestOriginHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:3000", "localhost:3000"},
		{"https://magazine.example", "magazine.example"},
		{"magazine.example:8443", "magazine.example:8443"},
		{"*", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, originHost(tt.in), "origin %q", tt.in)
	}
}

func TestNewCSRFConfig(t *testing.T) {
	cfg := NewCSRFConfig(testCSRFKey, []string{"http://localhost:3000", "*"}, nil)
	assert.Equal(t, []string{"localhost:3000"}, cfg.TrustedOrigins)
	assert.Len(t, cfg.AuthKey, 32)
}

func TestCSRF(t *testing.T) {
	cfg := NewCSRFConfig(testCSRFKey, []string{"http://localhost:3000"}, testutil.TestLoggerSilent())
	handler := CSRF(cfg)(simpleOKHandler)

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    int
	}{
		{
			name:   "non-browser client",
			method: http.MethodPost,
			want:   http.StatusOK,
		},
		{
			name:    "same origin",
			method:  http.MethodPost,
			headers: map[string]string{"Sec-Fetch-Site": "same-origin"},
			want:    http.StatusOK,
		},
		{
			name:    "cross site",
			method:  http.MethodPost,
			headers: map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"},
			want:    http.StatusForbidden,
		},
		{
			name:    "safe method",
			method:  http.MethodGet,
			headers: map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"},
			want:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://api.example/api/auth/refresh", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
