// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, rate limiting and response hardening of the API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/magazine-api/internal/util"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, message string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIError{Error: message, Details: details})
}

// maxLimiterEntries bounds the number of tracked keys before the cache is reset.
const maxLimiterEntries = 10000

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

func (lc *limiterCache[K]) size() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	name   string
	cache  *limiterCache[string]
	exempt []string
	logger *slog.Logger
}

// NewRateLimiter creates a per-IP rate limiter. Requests whose path starts
// with one of the exempt prefixes are never limited.
func NewRateLimiter(name string, rps float64, burst int, logger *slog.Logger, exempt ...string) *RateLimiter {
	return &RateLimiter{
		name:   name,
		cache:  newLimiterCache[string](rps, burst),
		exempt: exempt,
		logger: logger,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.cache.size() > maxLimiterEntries && rl.cache.clearIfExceeds(maxLimiterEntries) {
		rl.logger.Info("cleared rate limiters due to size", "limiter", rl.name)
	}
	return rl.cache.get(ip).Allow()
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range rl.exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ip := util.ClientIP(r)
			if !rl.Allow(ip) {
				rl.logger.Warn("rate limit exceeded", "limiter", rl.name, "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfter(rl.cache.rate))
				WriteAPIError(w, http.StatusTooManyRequests, "Too many requests, please slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter returns the whole seconds until one token is refilled.
func retryAfter(limit rate.Limit) string {
	if limit <= 0 {
		return "60"
	}
	secs := int(time.Duration(float64(time.Second)/float64(limit)).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
