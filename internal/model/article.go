// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// Status is the publication state of an article.
type Status string

// Article statuses.
const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusDraft, StatusPublished, StatusArchived}

// ParseStatus parses a status name case-insensitively.
// Unknown names are an error; there is no fallback to draft.
func ParseStatus(s string) (Status, error) {
	want := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == want {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: must be one of DRAFT, PUBLISHED, ARCHIVED", s)
}

func (s Status) String() string {
	return string(s)
}
