// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"DRAFT", StatusDraft, false},
		{"published", StatusPublished, false},
		{" Archived ", StatusArchived, false},
		{"", "", true},
		{"deleted", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleEditor, true},
		{RoleEditor, RoleAdmin, false},
		{RoleEditor, RoleEditor, true},
		{RoleViewer, RoleEditor, false},
		{Role("ghost"), RoleViewer, false},
	}

	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("EDITOR"); err != nil || r != RoleEditor {
		t.Errorf("ParseRole(EDITOR) = %q, %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("ParseRole(root) error = nil, want error")
	}
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in      string
		want    EventType
		wantErr bool
	}{
		{"", EventView, false},
		{"view", EventView, false},
		{"HEARTBEAT", EventHeartbeat, false},
		{"scroll", EventScroll, false},
		{"click", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEventType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEventType(%q) = %q, %v", tt.in, got, err)
		}
	}
}
