// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/neongallery/internal/gallery"
)

type fakeThemes struct {
	themes []gallery.Theme
	images map[string][]gallery.Image
	err    error
}

func (f *fakeThemes) ListThemes(context.Context) ([]gallery.Theme, error) {
	return f.themes, f.err
}

func (f *fakeThemes) ListImages(_ context.Context, theme string) ([]gallery.Image, error) {
	return f.images[theme], nil
}

func TestSEOHandler_Robots(t *testing.T) {
	tests := []struct {
		name        string
		disallowAll bool
		want        []string
		notWant     []string
	}{
		{
			name:    "production",
			want:    []string{"Disallow: /api/", "Allow: /", "Sitemap: https://neon.example/sitemap.xml"},
			notWant: []string{"Disallow: /\n"},
		},
		{
			name:        "development",
			disallowAll: true,
			want:        []string{"Disallow: /\n"},
			notWant:     []string{"Sitemap:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSEOHandler(&fakeThemes{}, "https://neon.example", tt.disallowAll)
			w := httptest.NewRecorder()
			h.Robots(w, httptest.NewRequest(http.MethodGet, RouteRobots, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
			for _, s := range tt.want {
				assert.Contains(t, w.Body.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, w.Body.String(), s)
			}
		})
	}
}

func TestSEOHandler_Sitemap(t *testing.T) {
	newest := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeThemes{
		themes: []gallery.Theme{{Name: "Neon"}, {Name: "Empty"}},
		images: map[string][]gallery.Image{
			"Neon": {
				{Name: "a.png", ModTime: newest.Add(-time.Hour)},
				{Name: "b.png", ModTime: newest},
			},
		},
	}
	h := NewSEOHandler(src, "https://neon.example/", false)

	w := httptest.NewRecorder()
	h.Sitemap(w, httptest.NewRequest(http.MethodGet, RouteSitemap, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	body := w.Body.String()
	assert.Contains(t, body, "<loc>https://neon.example/</loc>")
	assert.Contains(t, body, "<loc>https://neon.example/theme/Neon</loc>")
	assert.Contains(t, body, "<lastmod>2025-06-01T12:00:00Z</lastmod>")
	assert.Contains(t, body, "<loc>https://neon.example/theme/Empty</loc>")
}

func TestSEOHandler_SitemapUnavailable(t *testing.T) {
	tests := []struct {
		name        string
		siteURL     string
		disallowAll bool
		err         error
		wantStatus  int
	}{
		{"no site url", "", false, nil, http.StatusNotFound},
		{"crawling disabled", "https://neon.example", true, nil, http.StatusNotFound},
		{"list error", "https://neon.example", false, errors.New("disk gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSEOHandler(&fakeThemes{err: tt.err}, tt.siteURL, tt.disallowAll)
			w := httptest.NewRecorder()
			h.Sitemap(w, httptest.NewRequest(http.MethodGet, RouteSitemap, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
