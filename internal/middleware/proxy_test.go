// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/magazine-api/internal/util"
)

func TestParseTrustedProxies(t *testing.T) {
	nets, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 127.0.0.1 ", "", "::1"})
	require.NoError(t, err)
	assert.Len(t, nets, 3)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRealIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		trusted    bool
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{
			name:       "untrusted peer keeps its address",
			trusted:    true,
			remoteAddr: "203.0.113.9:5000",
			xff:        "198.51.100.1",
			want:       "203.0.113.9",
		},
		{
			name:       "trusted peer with forwarded client",
			trusted:    true,
			remoteAddr: "10.0.0.2:5000",
			xff:        "198.51.100.1",
			want:       "198.51.100.1",
		},
		{
			name:       "spoofed leftmost hop is skipped",
			trusted:    true,
			remoteAddr: "10.0.0.2:5000",
			xff:        "1.2.3.4, 198.51.100.1, 10.0.0.3",
			want:       "198.51.100.1",
		},
		{
			name:       "X-Real-IP fallback",
			trusted:    true,
			remoteAddr: "10.0.0.2:5000",
			xRealIP:    "198.51.100.5",
			want:       "198.51.100.5",
		},
		{
			name:       "no trusted proxies configured",
			trusted:    false,
			remoteAddr: "10.0.0.2:5000",
			xff:        "198.51.100.1",
			want:       "10.0.0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nets = trusted
			if !tt.trusted {
				nets = nil
			}

			var got string
			handler := RealIP(nets)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = util.ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}
