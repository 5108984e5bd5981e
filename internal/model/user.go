// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain enumerations shared by the store, services and
// HTTP layers: article status, user roles and analytics event kinds.
package model

import (
	"fmt"
	"strings"
)

// Role is a user's authorization role.
type Role string

// User roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// roleLevel maps roles to privilege levels for comparison.
var roleLevel = map[Role]int{
	RoleAdmin:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleLevel[r]; !ok {
		return "", fmt.Errorf("invalid role %q: must be one of admin, editor, viewer", s)
	}
	return r, nil
}

// Level returns the privilege level of the role, or 0 for unknown roles.
func (r Role) Level() int {
	return roleLevel[r]
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	level := r.Level()
	return level > 0 && level >= min.Level()
}

func (r Role) String() string {
	return string(r)
}
