// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Memory(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute}, silentLogger())
	defer func() { _ = c.Close() }()

	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("New() = %T, want *MemoryCache", c)
	}
}

func TestNew_RedisFallback(t *testing.T) {
	// Nothing listens on port 1.
	c := New(Config{RedisURL: "redis://127.0.0.1:1/0", DefaultTTL: time.Minute}, silentLogger())
	defer func() { _ = c.Close() }()

	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("New() = %T, want memory fallback", c)
	}
}

func TestRemember(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	type payload struct{ N int }
	calls := 0
	load := func() (payload, error) {
		calls++
		return payload{N: 7}, nil
	}

	for range 3 {
		v, err := Remember(ctx, c, silentLogger(), "k", load)
		if err != nil {
			t.Fatalf("Remember: %v", err)
		}
		if v.N != 7 {
			t.Errorf("value = %+v", v)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	Invalidate(ctx, c, silentLogger(), "k")
	_, _ = Remember(ctx, c, silentLogger(), "k", load)
	if calls != 2 {
		t.Errorf("loader called %d times after invalidation, want 2", calls)
	}
}

func TestRemember_LoaderErrorNotCached(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	defer func() { _ = c.Close() }()

	boom := errors.New("boom")
	_, err := Remember(context.Background(), c, silentLogger(), "k", func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Error("failed load was cached")
	}
}
