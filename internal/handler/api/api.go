// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON handlers and the router of the magazine API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/service"
)

// maxJSONBody bounds request bodies of JSON endpoints.
const maxJSONBody = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	articles    *service.ArticleService
	categories  *service.CategoryService
	subscribers *service.SubscriberService
	auth        *service.AuthService
	analytics   *service.AnalyticsService
	media       *service.MediaService
	login       *middleware.LoginProtection
	logger      *slog.Logger

	secureCookies bool
}

// Services groups the services the handlers delegate to.
type Services struct {
	Articles    *service.ArticleService
	Categories  *service.CategoryService
	Subscribers *service.SubscriberService
	Auth        *service.AuthService
	Analytics   *service.AnalyticsService
	Media       *service.MediaService
}

// NewHandler creates a new API handler. login may be nil to disable
// account lockout.
func NewHandler(svc Services, login *middleware.LoginProtection, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{
		articles:      svc.Articles,
		categories:    svc.Categories,
		subscribers:   svc.Subscribers,
		auth:          svc.Auth,
		analytics:     svc.Analytics,
		media:         svc.Media,
		login:         login,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// MessageResponse is the body of operations that only confirm success.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	middleware.WriteAPIError(w, statusCode, message, nil)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details ...string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteInternalError writes a generic 500 response.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// writeServiceError maps a service error to its HTTP status. Unexpected
// errors are logged and reported without detail. notFound is the message
// used for service.ErrNotFound.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var validation *service.ValidationError
	var conflict *service.ConflictError

	switch {
	case errors.As(err, &validation):
		WriteBadRequest(w, "Validation failed", validation.Details...)
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, conflict.Message)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, notFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "Account is disabled")
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrFileTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %d MB", h.media.MaxSize()>>20))
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		WriteInternalError(w)
	}
}

// decodeJSON reads a JSON request body into dst. It writes a 400 response
// and returns false when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is required")
		default:
			WriteBadRequest(w, "Invalid JSON body")
		}
		return false
	}
	return true
}

// parseIDParam parses the numeric {id} URL parameter. It writes a 400
// response and returns false when the parameter is not a positive integer.
func parseIDParam(w http.ResponseWriter, r *http.Request, entityName string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid "+entityName+" ID")
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter key, or def when it is
// absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
