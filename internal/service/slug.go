// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/util"
)

// maxSlugSuffix bounds the collision search.
const maxSlugSuffix = 10000

// SlugResolver turns titles and caller-supplied slugs into unique article slugs.
type SlugResolver struct {
	now func() time.Time
}

// NewSlugResolver creates a SlugResolver.
func NewSlugResolver() *SlugResolver {
	return &SlugResolver{now: time.Now}
}

// Resolve slugifies candidate and appends -1, -2, ... until no other
// article than excludeID uses it. An empty result yields a provisional
// slug that the caller replaces with article-<id> once the id is known.
func (r *SlugResolver) Resolve(ctx context.Context, q *store.Queries, candidate string, excludeID int64) (slug string, provisional bool, err error) {
	base := util.Slugify(candidate)
	if base == "" {
		return fmt.Sprintf("article-%d", r.now().UnixNano()), true, nil
	}

	slug = base
	for i := 1; ; i++ {
		exists, err := q.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", false, fmt.Errorf("checking slug %q: %w", slug, err)
		}
		if !exists {
			return slug, false, nil
		}
		if i > maxSlugSuffix {
			return "", false, errSlugConflict
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}

// fallbackSlug is the final slug of an article whose title has no usable
// characters.
func fallbackSlug(id int64) string {
	return "article-" + strconv.FormatInt(id, 10)
}
