// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook tells the statically rendered frontend which paths went
// stale after a content change.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// RevalidatePath is the frontend endpoint receiving notifications.
	RevalidatePath = "/api/revalidate"
	// DefaultTimeout bounds each path notification.
	DefaultTimeout = 5 * time.Second
	// MaxResponseLen is the part of an error response kept for the log.
	MaxResponseLen = 1024
	// UserAgent is sent with every notification.
	UserAgent = "magazine-api/1.0"
)

// Config configures a Notifier. An empty FrontendURL or Secret disables it.
type Config struct {
	FrontendURL string
	Secret      string
	Timeout     time.Duration
}

// Notifier posts revalidation requests to the frontend. Failures are logged
// and never returned, so content writes are not affected by the frontend.
type Notifier struct {
	endpoint string
	secret   string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

type revalidateRequest struct {
	Secret string `json:"secret"`
	Path   string `json:"path"`
}

// NewNotifier creates a Notifier.
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	n := &Notifier{
		secret:  cfg.Secret,
		timeout: timeout,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
	if cfg.FrontendURL != "" && cfg.Secret != "" {
		n.endpoint = cfg.FrontendURL + RevalidatePath
	}
	return n
}

// Enabled reports whether notifications are sent.
func (n *Notifier) Enabled() bool {
	return n.endpoint != ""
}

// Notify sends one revalidation request per distinct path, in order. Every
// path is attempted even when earlier ones fail.
func (n *Notifier) Notify(ctx context.Context, paths ...string) {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return
	}
	if !n.Enabled() {
		n.logger.DebugContext(ctx, "revalidation disabled, skipping", "paths", paths)
		return
	}

	for _, path := range paths {
		if err := n.send(ctx, path); err != nil {
			n.logger.WarnContext(ctx, "revalidation failed", "path", path, "error", err)
			continue
		}
		n.logger.InfoContext(ctx, "revalidated frontend path", "path", path)
	}
}

func (n *Notifier) send(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := json.Marshal(revalidateRequest{Secret: n.secret, Path: path})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(SignatureHeader, GenerateSignature(body, n.secret))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
