// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// Remember returns the value cached under key, or calls load, caches its
// result and returns it. Cache failures are logged and fall through to load.
func Remember[T any](ctx context.Context, c Cache, logger *slog.Logger, key string, load func() (T, error)) (T, error) {
	if data, err := c.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return v, nil
	}
	if err := c.Set(ctx, key, data, 0); err != nil {
		logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// Invalidate removes every key under each prefix, logging failures.
func Invalidate(ctx context.Context, c Cache, logger *slog.Logger, prefixes ...string) {
	for _, p := range prefixes {
		if err := c.DeleteByPrefix(ctx, p); err != nil {
			logger.WarnContext(ctx, "cache invalidation failed", "prefix", p, "error", err)
		}
	}
}
