// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook notifies external endpoints about gallery changes.
package webhook

import (
	"time"
)

// Event types.
const (
	EventThemeCreated       = "theme.created"
	EventThemeDeleted       = "theme.deleted"
	EventImagesUploaded     = "images.uploaded"
	EventImageDeleted       = "image.deleted"
	EventBackgroundUploaded = "background.uploaded"
	EventBackgroundDeleted  = "background.deleted"
	EventUserCreated        = "user.created"
)

// AllEvents lists every event type.
var AllEvents = []string{
	EventThemeCreated,
	EventThemeDeleted,
	EventImagesUploaded,
	EventImageDeleted,
	EventBackgroundUploaded,
	EventBackgroundDeleted,
	EventUserCreated,
}

// IsKnownEvent reports whether t is one of AllEvents.
func IsKnownEvent(t string) bool {
	for _, e := range AllEvents {
		if e == t {
			return true
		}
	}
	return false
}

// Event represents a webhook event to be dispatched.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ThemeEventData contains data for theme events.
type ThemeEventData struct {
	Theme  string `json:"theme"`
	UserID int64  `json:"user_id,omitempty"`
}

// ImageEventData contains data for image events. Uploads list every
// stored file.
type ImageEventData struct {
	Theme  string   `json:"theme"`
	Images []string `json:"images"`
	Bytes  int64    `json:"bytes,omitempty"`
	UserID int64    `json:"user_id,omitempty"`
}

// BackgroundEventData contains data for background events.
type BackgroundEventData struct {
	Background string `json:"background"`
	Bytes      int64  `json:"bytes,omitempty"`
	UserID     int64  `json:"user_id,omitempty"`
}

// UserEventData contains data for user events.
type UserEventData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Method   string `json:"method"`
}
