// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_Disabled(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error: %v", err)
	}
	defer func() { _ = l.Close() }()

	if l.Enabled() {
		t.Error("Enabled() = true without a database")
	}

	tests := []struct {
		ip   string
		want string
	}{
		{"8.8.8.8", ""},
		{"192.168.1.10", Local},
		{"10.0.0.1", Local},
		{"127.0.0.1", Local},
		{"::1", Local},
		{"not-an-ip", ""},
	}
	for _, tt := range tests {
		if got := l.Country(tt.ip); got != tt.want {
			t.Errorf("Country(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}

	if err := l.Reload(); err != nil {
		t.Errorf("Reload() on disabled lookup: %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("Open(missing) error = nil")
	}
	if l == nil || l.Enabled() {
		t.Fatal("Open(missing) should return a disabled lookup")
	}
	if got := l.Country("8.8.8.8"); got != "" {
		t.Errorf("Country = %q, want empty", got)
	}
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mmdb")
	if err := os.WriteFile(path, []byte("not a maxmind database"), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path)
	if err == nil {
		t.Fatal("Open(invalid) error = nil")
	}
	if l.Enabled() {
		t.Error("invalid database reported as enabled")
	}
	if err := l.Reload(); err == nil {
		t.Error("Reload(invalid) error = nil")
	}
}
