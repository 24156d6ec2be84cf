// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/olegiv/neongallery/internal/imaging"
	"github.com/olegiv/neongallery/internal/metrics"
)

// ListFolderImages handles GET /api/list-images?folder=.
func (h *Handler) ListFolderImages(w http.ResponseWriter, r *http.Request) {
	folder, err := h.Repo.ListFolder(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		h.writeGalleryError(w, r, subjectFolder, err)
		return
	}
	writeSuccess(w, map[string]any{
		"folder": folder.Folder,
		"count":  folder.Count,
		"files":  folder.Files,
	})
}

// ServeImage handles GET /images/{theme}/{image}.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	theme, ok := pathParam(w, r, "theme")
	if !ok {
		return
	}
	image, ok := pathParam(w, r, "image")
	if !ok {
		return
	}
	f, info, err := h.Repo.OpenImage(r.Context(), theme, image)
	if err != nil {
		h.writeGalleryError(w, r, subjectImage, err)
		return
	}
	defer func() { _ = f.Close() }()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// ServeThumbnail handles GET /thumbs/{theme}/{image}?w=.
func (h *Handler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	width := imaging.DefaultThumbnailWidth
	if raw := r.URL.Query().Get("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeGalleryError(w, r, subjectImage, imaging.ErrInvalidWidth)
			return
		}
		width = n
	}

	theme, ok := pathParam(w, r, "theme")
	if !ok {
		return
	}
	image, ok := pathParam(w, r, "image")
	if !ok {
		return
	}
	f, info, err := h.Repo.OpenImage(r.Context(), theme, image)
	if err != nil {
		h.writeGalleryError(w, r, subjectImage, err)
		return
	}
	defer func() { _ = f.Close() }()

	thumb, err := h.Thumbnails.Get(r.Context(), theme, image, f, info, width)
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
		h.writeGalleryError(w, r, subjectImage, err)
		return
	}
	metrics.ThumbnailsTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", thumb.ContentType)
	http.ServeContent(w, r, "", info.ModTime(), bytes.NewReader(thumb.Data))
}

// ServeBackground handles GET /backgrounds/{name}.
func (h *Handler) ServeBackground(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	f, info, err := h.Backgrounds.Open(r.Context(), name)
	if err != nil {
		h.writeGalleryError(w, r, subjectBackground, err)
		return
	}
	defer func() { _ = f.Close() }()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
