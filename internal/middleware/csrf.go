// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for CSRF protection of cookie-authenticated
// endpoints. The protection relies on Fetch metadata and Origin headers, so
// requests from non-browser clients that send neither are allowed.
type CSRFConfig struct {
	// AuthKey is a 32-byte key kept for API compatibility with gorilla/csrf.
	AuthKey []byte

	// TrustedOrigins are host[:port] values allowed to make cross-origin
	// requests, typically the frontend origins.
	TrustedOrigins []string

	Logger *slog.Logger
}

// NewCSRFConfig builds a CSRFConfig that trusts the given CORS origins.
// Origins are accepted as full URLs and reduced to host[:port].
func NewCSRFConfig(authKey []byte, corsOrigins []string, logger *slog.Logger) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey, Logger: logger}
	for _, origin := range corsOrigins {
		if host := originHost(origin); host != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, host)
		}
	}
	return cfg
}

// originHost returns the host[:port] part of an origin, or "" for wildcards
// and unparsable values.
func originHost(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || strings.Contains(origin, "*") {
		return ""
	}
	if !strings.Contains(origin, "://") {
		return origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}

// CSRF returns a middleware that rejects cross-site state-changing requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []csrf.Option{
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			logger.Warn("CSRF validation failed",
				"reason", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
			)
			WriteAPIError(w, http.StatusForbidden, "Cross-site request rejected", nil)
		})),
	}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}
