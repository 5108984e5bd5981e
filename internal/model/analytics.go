// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// EventType classifies a tracked page hit.
type EventType string

// Tracked event types. Only views count towards article view counters.
const (
	EventView      EventType = "view"
	EventHeartbeat EventType = "heartbeat"
	EventScroll    EventType = "scroll"
)

// ParseEventType parses an event type, defaulting to view when empty.
func ParseEventType(s string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case "", EventView:
		return EventView, nil
	case EventHeartbeat:
		return EventHeartbeat, nil
	case EventScroll:
		return EventScroll, nil
	}
	return "", fmt.Errorf("invalid event_type %q: must be one of view, heartbeat, scroll", s)
}

// Device types recorded for page hits.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)
