// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the magazine business logic: the article
// lifecycle, categories, subscribers, authentication, uploads and analytics.
// Handlers translate the errors declared here into HTTP statuses.
package service

import (
	"errors"
	"strings"

	"github.com/olegiv/magazine-api/internal/auth"
)

// Sentinel errors returned by the services.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidToken       = auth.ErrInvalidToken

	// errSlugConflict marks a lost race on the articles.slug unique index.
	errSlugConflict = errors.New("slug conflict")
)

// ValidationError aggregates every input violation of a request.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// validator collects violations in order.
type validator struct {
	details []string
}

func (v *validator) add(msg string) {
	v.details = append(v.details, msg)
}

func (v *validator) check(ok bool, msg string) {
	if !ok {
		v.add(msg)
	}
}

func (v *validator) err() error {
	if len(v.details) == 0 {
		return nil
	}
	return &ValidationError{Details: v.details}
}

// ConflictError reports a write rejected by a uniqueness rule.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
