// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/olegiv/magazine-api/internal/auth"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/util"
)

// MinPasswordLength is the minimum length of a new password in characters.
const MinPasswordLength = 6

// UserView is the public representation of a user.
type UserView struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID int64
	Email  string
	Name   string
	Role   model.Role
}

// LoginResult carries the tokens of a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserView
}

// AuthService authenticates users and issues tokens.
type AuthService struct {
	queries *store.Queries
	tokens  *auth.TokenManager
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(db *sql.DB, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		queries: store.New(db),
		tokens:  tokens,
		logger:  logger,
	}
}

// Tokens returns the token manager used by the service.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokens
}

// Login checks credentials and issues an access and a refresh token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &ValidationError{Details: []string{"Missing email or password"}}
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is unusable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := store.Now()
	if err := s.queries.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("updating last login: %w", err)
	}
	user.LastLogin = sql.NullTime{Time: now, Valid: true}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: toUserView(user)}, nil
}

func (s *AuthService) rehash(ctx context.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	if _, err := s.queries.UpdateUserPassword(ctx, userID, hash, store.Now()); err != nil {
		s.logger.WarnContext(ctx, "storing rehashed password failed", "user_id", userID, "error", err)
	}
}

// Refresh issues a new access token for a valid refresh token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", ErrInvalidToken
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return "", err
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves an access token to the identity of an active user.
// The role is read from the database, so demotions apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.tokens.Verify(accessToken, auth.TokenAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   model.Role(user.Role),
	}, nil
}

func (s *AuthService) activeUser(ctx context.Context, claims *auth.Claims) (store.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return store.User{}, ErrInvalidToken
	}
	user, err := s.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidToken
	}
	if err != nil {
		return store.User{}, fmt.Errorf("loading user %d: %w", id, err)
	}
	if !user.IsActive {
		return store.User{}, ErrInvalidToken
	}
	return user, nil
}

// Me returns the profile of a user.
func (s *AuthService) Me(ctx context.Context, userID int64) (*UserView, error) {
	user, err := s.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}
	v := toUserView(user)
	return &v, nil
}

// ChangePassword replaces the password of a user after checking the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return &ValidationError{Details: []string{"Missing fields"}}
	}

	user, err := s.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading user %d: %w", userID, err)
	}

	ok, err := auth.CheckPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if utf8.RuneCountInString(next) < MinPasswordLength {
		return &ValidationError{Details: []string{
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		}}
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := s.queries.UpdateUserPassword(ctx, userID, hash, store.Now()); err != nil {
		return fmt.Errorf("saving password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

func toUserView(u store.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      model.Role(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: util.PtrFromNullTime(u.LastLogin),
	}
}
