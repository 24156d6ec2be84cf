// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olegiv/neongallery/internal/store"
)

// CountryResolver maps a client IP to a country code.
type CountryResolver interface {
	Country(ip string) string
}

// Auditor writes explicit audit events, independent of log levels.
type Auditor struct {
	queries   *store.Queries
	countries CountryResolver
	now       func() time.Time
}

// NewAuditor creates an Auditor on db.
func NewAuditor(db store.DBTX) *Auditor {
	return &Auditor{queries: store.New(db), now: time.Now}
}

// SetCountries enables the country field of login events.
func (a *Auditor) SetCountries(r CountryResolver) {
	a.countries = r
}

// Log stores one event. userID may be nil.
func (a *Auditor) Log(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encoding event metadata: %w", err)
		}
		meta = string(b)
	}

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	_, err := a.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    uid,
		Metadata:  meta,
		CreatedAt: a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("storing event: %w", err)
	}
	return nil
}

// LoginInfo describes a successful login.
type LoginInfo struct {
	UserID    int64
	Method    string // "phone" or "wechat"
	Created   bool   // first login created the account
	IP        string
	UserAgent string
}

// LogLogin stores a login event with the parsed client.
func (a *Auditor) LogLogin(ctx context.Context, info LoginInfo) error {
	ua := parseUserAgent(info.UserAgent)
	message := "user logged in"
	if info.Created {
		message = "user registered"
	}
	meta := map[string]any{
		"method":  info.Method,
		"ip":      info.IP,
		"browser": ua.Browser,
		"os":      ua.OS,
		"device":  ua.DeviceType,
	}
	if a.countries != nil {
		if c := a.countries.Country(info.IP); c != "" {
			meta["country"] = c
		}
	}
	uid := info.UserID
	return a.Log(ctx, store.EventLevelInfo, store.EventCategoryAuth, message, &uid, meta)
}
