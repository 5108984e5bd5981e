// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/service"
	"github.com/olegiv/magazine-api/internal/store"
)

// adminPasswordEnv holds the password used by -create-admin.
const adminPasswordEnv = "MAG_ADMIN_PASSWORD"

// seedFromFile applies a YAML seed document to the database.
func seedFromFile(ctx context.Context, db *sql.DB, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := store.ParseSeed(f)
	if err != nil {
		return err
	}

	res, err := store.Seed(ctx, db, doc)
	if err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	logger.Info("seed applied", "file", path, "categories", res.Categories, "users", res.Users)
	return nil
}

// parseAdminSpec splits an "email:name" value. The name is optional.
func parseAdminSpec(spec string) (email, name string, err error) {
	email, name, _ = strings.Cut(spec, ":")
	email = service.NormalizeEmail(email)
	if !service.ValidEmail(email) {
		return "", "", fmt.Errorf("invalid admin email %q", email)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}
	return email, name, nil
}

// createAdmin provisions an admin account. The password comes from
// MAG_ADMIN_PASSWORD so it never appears in the process list.
func createAdmin(ctx context.Context, db *sql.DB, spec, password string, logger *slog.Logger) error {
	email, name, err := parseAdminSpec(spec)
	if err != nil {
		return err
	}
	if len(password) < service.MinPasswordLength {
		return fmt.Errorf("%s must be at least %d characters", adminPasswordEnv, service.MinPasswordLength)
	}

	q := store.New(db)
	if _, err := q.GetUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("user %q already exists", email)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking existing user: %w", err)
	}

	user, err := store.CreateUserWithPassword(ctx, q, email, name, password, model.RoleAdmin)
	if err != nil {
		return err
	}
	total, err := q.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	logger.Info("admin created", "id", user.ID, "email", user.Email, "total_users", total)
	return nil
}

// setUserActive enables or disables the account with the given email.
// Disabled users can neither log in nor refresh their tokens.
func setUserActive(ctx context.Context, db *sql.DB, email string, active bool, logger *slog.Logger) error {
	email = service.NormalizeEmail(email)
	q := store.New(db)
	user, err := q.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %q not found", email)
	}
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}

	if _, err := q.SetUserActive(ctx, user.ID, active, store.Now()); err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	logger.Info("user updated", "id", user.ID, "email", user.Email, "active", active)
	return nil
}
