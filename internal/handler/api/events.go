// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/neongallery/internal/store"
)

const (
	defaultEventsPerPage = 50
	maxEventsPerPage     = 200
)

// EventLister reads the event log.
type EventLister interface {
	ListEvents(ctx context.Context, arg store.ListEventsParams) ([]store.Event, error)
	CountEvents(ctx context.Context, level, category string) (int64, error)
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Pages   int   `json:"pages"`
}

// EventResponse is an event log entry in API responses.
type EventResponse struct {
	store.Event
	UserID *int64 `json:"userId,omitempty"`
}

// ListEvents handles GET /api/events?level=&category=&page=&per_page=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := q.Get("level")
	category := q.Get("category")
	page := parsePositiveInt(q.Get("page"), 1)
	perPage := min(parsePositiveInt(q.Get("per_page"), defaultEventsPerPage), maxEventsPerPage)

	total, err := h.Events.CountEvents(r.Context(), level, category)
	if err != nil {
		slog.Error("failed to count events", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}

	events, err := h.Events.ListEvents(r.Context(), store.ListEventsParams{
		Level:    level,
		Category: category,
		Limit:    int64(perPage),
		Offset:   int64((page - 1) * perPage),
	})
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}

	items := make([]EventResponse, 0, len(events))
	for _, e := range events {
		item := EventResponse{Event: e}
		if e.UserID.Valid {
			id := e.UserID.Int64
			item.UserID = &id
		}
		items = append(items, item)
	}

	writeSuccess(w, map[string]any{
		"events": items,
		"meta": Meta{
			Total:   total,
			Page:    page,
			PerPage: perPage,
			Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
		},
	})
}

func parsePositiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
