// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors WARN and ERROR
// records into the event log, and helpers for audit events.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/store"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler creates a new EventLogHandler that stores WARN and above.
func NewEventLogHandler(inner slog.Handler, db store.DBTX) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db store.DBTX, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog stores r. A background context is used so the event is
// kept even when the request was cancelled.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	category := ""
	var userID sql.NullInt64
	meta := make(map[string]string, len(attrs)+1)
	for _, a := range attrs {
		switch a.Key {
		case "category":
			category = a.Value.String()
		case "user_id":
			if id, ok := attrInt64(a.Value); ok && id > 0 {
				userID = sql.NullInt64{Int64: id, Valid: true}
			}
			meta[a.Key] = a.Value.String()
		default:
			meta[a.Key] = a.Value.String()
		}
	}
	if category == "" {
		category = inferCategory(r.Message)
	}
	if path := middleware.GetRequestPath(ctx); path != "" {
		if _, ok := meta["url"]; !ok {
			meta["url"] = path
		}
	}

	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     slogLevelToEventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

func attrInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	default:
		return 0, false
	}
}

// slogLevelToEventLevel converts a slog.Level to an event level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return store.EventLevelError
	case level >= slog.LevelWarn:
		return store.EventLevelWarning
	default:
		return store.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when none is given.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "logout") || strings.Contains(msg, "verification") ||
		strings.Contains(msg, "csrf") || strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "rate limit") || strings.Contains(msg, "locked"):
		return store.EventCategoryAuth
	case strings.Contains(msg, "upload"):
		return store.EventCategoryUpload
	case strings.Contains(msg, "theme") || strings.Contains(msg, "image") ||
		strings.Contains(msg, "background") || strings.Contains(msg, "folder"):
		return store.EventCategoryGallery
	case strings.Contains(msg, "user"):
		return store.EventCategoryUser
	case strings.Contains(msg, "cache") || strings.Contains(msg, "thumbnail"):
		return store.EventCategoryCache
	default:
		return store.EventCategorySystem
	}
}
