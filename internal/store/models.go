// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User is a gallery account, created on first phone or WeChat login.
type User struct {
	ID            int64          `json:"id"`
	Username      string         `json:"username"`
	Phone         sql.NullString `json:"-"`
	PhoneVerified bool           `json:"phoneVerified"`
	WechatID      sql.NullString `json:"-"`
	Avatar        string         `json:"avatar"`
	IsAdmin       bool           `json:"isAdmin"`
	LastLoginAt   sql.NullTime   `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"-"`
}

// Event is one entry of the event log.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"-"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories.
const (
	EventCategoryAuth    = "auth"
	EventCategoryGallery = "gallery"
	EventCategoryUpload  = "upload"
	EventCategoryUser    = "user"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)
