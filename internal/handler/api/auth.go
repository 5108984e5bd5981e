// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/service"
	"github.com/olegiv/magazine-api/internal/util"
)

const (
	// RefreshCookieName holds the refresh token.
	RefreshCookieName = "refresh_token"
	// RefreshCookiePath scopes the refresh cookie to the auth endpoints.
	RefreshCookiePath = "/api/auth"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int64            `json:"expires_in"`
	User        service.UserView `json:"user"`
}

// TokenResponse is returned by the refresh endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// UserResponse wraps the current user.
type UserResponse struct {
	User service.UserView `json:"user"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// refreshCookie builds the refresh cookie. A negative maxAge clears it.
func (h *Handler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     RefreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Login handles POST /api/auth/login. Unknown emails and wrong passwords get
// the same response, and both count towards the account lockout.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.login != nil && req.Email != "" {
		if locked, remaining := h.login.IsAccountLocked(req.Email); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Round(time.Second)/time.Second)))
			WriteError(w, http.StatusTooManyRequests, "Too many failed login attempts, please try again later")
			return
		}
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) && h.login != nil {
			if locked, _ := h.login.RecordFailedAttempt(req.Email); !locked {
				h.logger.WarnContext(r.Context(), "failed login attempt",
					"remaining_attempts", h.login.GetRemainingAttempts(req.Email),
					"ip", util.ClientIP(r),
				)
			}
		}
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	if h.login != nil {
		h.login.RecordSuccessfulLogin(req.Email)
	}

	tokens := h.auth.Tokens()
	http.SetCookie(w, h.refreshCookie(result.RefreshToken, int(tokens.RefreshTTL().Seconds())))
	WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   int64(tokens.AccessTTL().Seconds()),
		User:        result.User,
	})
}

// Logout handles POST /api/auth/logout by clearing the refresh cookie.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.refreshCookie("", -1))
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Refresh handles POST /api/auth/refresh using the refresh cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		WriteError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	access, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}

	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		ExpiresIn:   int64(h.auth.Tokens().AccessTTL().Seconds()),
	})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	WriteJSON(w, http.StatusOK, UserResponse{User: *user})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.auth.ChangePassword(r.Context(), middleware.GetUserID(r), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, service.ErrInvalidCredentials) {
		WriteError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
