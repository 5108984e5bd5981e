// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose utility functions including
// URL slug generation, string cleanup and client IP handling.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// slugStrip matches everything that is not a word character, whitespace or hyphen
	slugStrip = regexp.MustCompile(`[^a-z0-9_\s-]+`)
	// slugSeparators matches runs of whitespace, underscores and hyphens
	slugSeparators = regexp.MustCompile(`[\s_-]+`)
	// slugPattern is the accepted format for caller-supplied slugs
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Slugify converts a string to a URL-friendly slug.
// Accents are removed and non-Latin scripts are transliterated to ASCII
// before everything outside [a-z0-9-] is dropped. The result may be empty.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = unidecode.Unidecode(result)
	result = strings.ToLower(result)
	result = slugStrip.ReplaceAllString(result, "")
	result = slugSeparators.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	// Check if it only contains lowercase letters, numbers, and hyphens
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	// Check that it doesn't start or end with a hyphen
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	// Check for consecutive hyphens
	if strings.Contains(s, "--") {
		return false
	}

	return true
}

// MatchesSlugPattern reports whether s uses only lowercase letters, digits
// and hyphens. It is looser than IsValidSlug and is used to validate input.
func MatchesSlugPattern(s string) bool {
	return slugPattern.MatchString(s)
}
