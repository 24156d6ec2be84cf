// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticCache(t *testing.T) {
	tests := []struct {
		maxAge time.Duration
		want   string
	}{
		{ImageMaxAge, "public, max-age=604800"},
		{time.Hour, "public, max-age=3600"},
		{0, "public, max-age=0"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		StaticCache(tt.maxAge)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a/b.png", nil))
		if got := rec.Header().Get("Cache-Control"); got != tt.want {
			t.Errorf("StaticCache(%v) = %q, want %q", tt.maxAge, got, tt.want)
		}
	}
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}
