// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/magazine-api/internal/logging"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/service"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyIdentity holds the *service.Identity of an authenticated request.
const ContextKeyIdentity ContextKey = "identity"

// TokenVerifier resolves an access token to the caller's identity.
type TokenVerifier interface {
	Authenticate(ctx context.Context, accessToken string) (*service.Identity, error)
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
// ok is false when the header is missing or malformed.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate creates middleware that requires a valid access token and
// stores the caller's identity in the request context.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteAPIError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			identity, err := verifier.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrInvalidToken) {
					logger.Error("authenticating request", "error", err, "path", r.URL.Path)
					WriteAPIError(w, http.StatusInternalServerError, "Internal server error", nil)
					return
				}
				WriteAPIError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuthenticate stores the caller's identity in the context when a
// valid access token is present. Missing or invalid tokens are ignored.
func OptionalAuthenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := verifier.Authenticate(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole creates middleware that requires a minimum user role.
// Roles are hierarchical: admin > editor > viewer.
// It must run after Authenticate.
func RequireRole(minRole model.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if identity == nil {
				WriteAPIError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			if !identity.Role.AtLeast(minRole) {
				logger.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", identity.UserID,
					"user_role", identity.Role,
					"required_role", minRole,
				)
				WriteAPIError(w, http.StatusForbidden, "Insufficient permissions", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying the identity. Context-aware
// log calls made with it include the user id.
func WithIdentity(ctx context.Context, identity *service.Identity) context.Context {
	ctx = logging.WithAttrs(ctx, slog.Int64("user_id", identity.UserID))
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// GetIdentity retrieves the authenticated caller from the request context.
// Returns nil if the request is anonymous.
func GetIdentity(r *http.Request) *service.Identity {
	identity, _ := r.Context().Value(ContextKeyIdentity).(*service.Identity)
	return identity
}

// GetUserID returns the caller's user ID, or 0 for anonymous requests.
func GetUserID(r *http.Request) int64 {
	if identity := GetIdentity(r); identity != nil {
		return identity.UserID
	}
	return 0
}

// RequestPath creates middleware that attaches the request method and path
// to the context so context-aware log calls include them.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
