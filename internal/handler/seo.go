// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/seo"
)

// ThemeSource lists themes and their images for the sitemap.
type ThemeSource interface {
	ListThemes(ctx context.Context) ([]gallery.Theme, error)
	ListImages(ctx context.Context, theme string) ([]gallery.Image, error)
}

// SEOHandler serves robots.txt and sitemap.xml.
type SEOHandler struct {
	themes      ThemeSource
	siteURL     string
	disallowAll bool
}

// NewSEOHandler creates a new SEOHandler. Crawlers are turned away
// completely when disallowAll is set.
func NewSEOHandler(themes ThemeSource, siteURL string, disallowAll bool) *SEOHandler {
	return &SEOHandler{themes: themes, siteURL: siteURL, disallowAll: disallowAll}
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	content := seo.BuildRobots(seo.RobotsConfig{
		SiteURL:     h.siteURL,
		DisallowAll: h.disallowAll,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(content))
}

// Sitemap handles GET /sitemap.xml. It is 404 until a site URL is
// configured.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	if h.siteURL == "" || h.disallowAll {
		http.NotFound(w, r)
		return
	}

	themes, err := h.themes.ListThemes(r.Context())
	if err != nil {
		slog.Error("failed to list themes for sitemap", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entries := make([]seo.SitemapTheme, 0, len(themes))
	for _, t := range themes {
		entry := seo.SitemapTheme{Name: t.Name}
		images, err := h.themes.ListImages(r.Context(), t.Name)
		if err != nil {
			slog.Warn("failed to list images for sitemap", "theme", t.Name, "error", err)
		}
		for _, img := range images {
			if img.ModTime.After(entry.UpdatedAt) {
				entry.UpdatedAt = img.ModTime
			}
		}
		entries = append(entries, entry)
	}

	data, err := seo.GenerateSitemap(h.siteURL, entries)
	if err != nil {
		slog.Error("failed to generate sitemap", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}
