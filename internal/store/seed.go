// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/magazine-api/internal/auth"
	"github.com/olegiv/magazine-api/internal/model"
	"github.com/olegiv/magazine-api/internal/util"
)

// SeedFile is the document accepted by the -seed flag.
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
	Users      []SeedUser     `yaml:"users"`
}

// SeedCategory describes a category to create.
type SeedCategory struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// SeedUser describes a user to create. Password is plain text and is hashed
// before it is stored.
type SeedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	return &f, nil
}

// SeedResult counts the rows created by Seed.
type SeedResult struct {
	Categories int
	Users      int
}

// Seed creates the categories and users of f that do not exist yet.
// Existing rows, matched by slug or email, are left untouched, so seeding
// the same file twice is harmless.
func Seed(ctx context.Context, db *sql.DB, f *SeedFile) (SeedResult, error) {
	var res SeedResult
	q := New(db)
	now := time.Now().UTC()

	for _, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return res, fmt.Errorf("seed category without a name")
		}
		slug := util.Slugify(c.Slug)
		if slug == "" {
			slug = util.Slugify(name)
		}
		if !util.IsValidSlug(slug) {
			return res, fmt.Errorf("seed category %q has no usable slug", name)
		}

		_, err := q.GetCategoryBySlug(ctx, slug)
		if err == nil {
			slog.Info("category already exists, skipping", "slug", slug)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return res, fmt.Errorf("checking category %q: %w", slug, err)
		}

		if _, err := q.CreateCategory(ctx, CreateCategoryParams{
			Name:        name,
			Slug:        slug,
			Description: util.NullStringFromValue(strings.TrimSpace(c.Description)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return res, fmt.Errorf("creating category %q: %w", slug, err)
		}
		res.Categories++
	}

	for _, u := range f.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" || u.Password == "" {
			return res, fmt.Errorf("seed user needs an email and a password")
		}
		role := model.RoleEditor
		if u.Role != "" {
			r, err := model.ParseRole(u.Role)
			if err != nil {
				return res, fmt.Errorf("seed user %q: %w", email, err)
			}
			role = r
		}

		_, err := q.GetUserByEmail(ctx, email)
		if err == nil {
			slog.Info("user already exists, skipping", "email", email)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return res, fmt.Errorf("checking user %q: %w", email, err)
		}

		if _, err := CreateUserWithPassword(ctx, q, email, u.Name, u.Password, role); err != nil {
			return res, err
		}
		res.Users++
	}

	return res, nil
}

// CreateUserWithPassword hashes password and inserts an active user.
func CreateUserWithPassword(ctx context.Context, q *Queries, email, name, password string, role model.Role) (User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         string(role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, fmt.Errorf("creating user %q: %w", email, err)
	}
	return user, nil
}
