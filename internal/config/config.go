// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the API configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never sign real tokens.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"your-secret-key-change-in-production",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"MAG_ENV" envDefault:"development"`
	ServerHost string `env:"MAG_SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort int    `env:"MAG_SERVER_PORT" envDefault:"8080"`
	DBPath     string `env:"MAG_DB_PATH" envDefault:"./data/magazine.db"`
	LogLevel   string `env:"MAG_LOG_LEVEL" envDefault:"info"`

	// Token signing
	JWTSecret       string        `env:"MAG_JWT_SECRET,required"`
	AccessTokenTTL  time.Duration `env:"MAG_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"MAG_REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Frontend revalidation
	FrontendURL       string        `env:"MAG_FRONTEND_URL"`
	RevalidateSecret  string        `env:"MAG_REVALIDATE_SECRET"`
	RevalidateTimeout time.Duration `env:"MAG_REVALIDATE_TIMEOUT" envDefault:"5s"`
	CORSOrigins       []string      `env:"MAG_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Uploads
	UploadsDir       string   `env:"MAG_UPLOADS_DIR" envDefault:"./uploads"`
	PublicURL        string   `env:"MAG_PUBLIC_URL" envDefault:"http://localhost:8080"`
	UploadExtensions []string `env:"MAG_UPLOAD_EXTENSIONS" envSeparator:","`
	UploadMaxSize    int64    `env:"MAG_UPLOAD_MAX_SIZE" envDefault:"16777216"`

	// Cache configuration
	RedisURL    string        `env:"MAG_REDIS_URL"` // Optional, memory cache when empty
	CacheTTL    time.Duration `env:"MAG_CACHE_TTL" envDefault:"60s"`
	CachePrefix string        `env:"MAG_CACHE_PREFIX" envDefault:"magazine:"`

	// Analytics
	GeoIPDBPath   string `env:"MAG_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
	AnalyticsSalt string `env:"MAG_ANALYTICS_SALT"`

	// Rate limiting
	APIRateLimit   float64  `env:"MAG_API_RATE_LIMIT" envDefault:"10"`
	APIRateBurst   int      `env:"MAG_API_RATE_BURST" envDefault:"30"`
	TrustedProxies []string `env:"MAG_TRUSTED_PROXIES" envSeparator:","`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// RevalidationEnabled reports whether frontend revalidation calls are configured.
func (c Config) RevalidationEnabled() bool {
	return c.FrontendURL != "" && c.RevalidateSecret != ""
}

// MinJWTSecretLength is the minimum required length for the HS256 signing key.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("MAG_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(c.JWTSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.JWTSecret == weak {
			return fmt.Errorf("MAG_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(c.JWTSecret) {
		slog.Warn("MAG_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("MAG_ACCESS_TOKEN_TTL (%s) must be shorter than MAG_REFRESH_TOKEN_TTL (%s)",
			c.AccessTokenTTL, c.RefreshTokenTTL)
	}

	if c.FrontendURL != "" {
		u, err := url.Parse(c.FrontendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("MAG_FRONTEND_URL must be an absolute http(s) URL, got %q", c.FrontendURL)
		}
		c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("MAG_UPLOAD_MAX_SIZE must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("MAG_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
