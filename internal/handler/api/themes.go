// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/metrics"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/store"
	"github.com/olegiv/neongallery/internal/webhook"
)

// CreateThemeRequest is the body of POST /api/themes.
type CreateThemeRequest struct {
	Name string `json:"name"`
}

// ListThemes handles GET /api/themes.
func (h *Handler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.Repo.ListThemes(r.Context())
	if err != nil {
		h.writeGalleryError(w, r, subjectTheme, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

// CreateTheme handles POST /api/themes.
func (h *Handler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req CreateThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name_required", "theme.name_required")
		return
	}

	theme, err := h.Repo.CreateTheme(r.Context(), req.Name)
	if err != nil {
		h.writeGalleryError(w, r, subjectTheme, err)
		return
	}

	slog.Info("theme created", "theme", theme.Name, "user_id", middleware.GetUserID(r))
	h.auditGallery(r, store.EventCategoryGallery, "theme created", map[string]any{"theme": theme.Name})
	h.notify(r, webhook.EventThemeCreated, webhook.ThemeEventData{Theme: theme.Name, UserID: middleware.GetUserID(r)})

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "theme.created"),
		"theme":   theme,
	})
}

// DeleteTheme handles DELETE /api/themes/{name}.
func (h *Handler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	if err := h.Repo.DeleteTheme(r.Context(), name); err != nil {
		h.writeGalleryError(w, r, subjectTheme, err)
		return
	}
	if h.Thumbnails != nil {
		h.Thumbnails.Purge(r.Context(), name, "")
	}

	slog.Info("theme deleted", "theme", name, "user_id", middleware.GetUserID(r))
	h.auditGallery(r, store.EventCategoryGallery, "theme deleted", map[string]any{"theme": name})
	h.notify(r, webhook.EventThemeDeleted, webhook.ThemeEventData{Theme: name, UserID: middleware.GetUserID(r)})

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "theme.deleted"),
	})
}

// ListImages handles GET /api/themes/{name}/images.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	images, err := h.Repo.ListImages(r.Context(), name)
	if err != nil {
		h.writeGalleryError(w, r, subjectTheme, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// UploadImages handles POST /api/themes/{name}/images. The batch is stored
// completely or not at all.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	theme, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	files, cleanup, ok := h.parseUpload(w, r, "images", h.cfg.MaxFiles, h.cfg.MaxImageSize)
	if !ok {
		return
	}
	defer cleanup()

	uploaded, err := h.Repo.PutImages(r.Context(), theme, files)
	if err != nil {
		h.writeGalleryError(w, r, subjectTheme, err)
		return
	}

	var total int64
	names := make([]string, 0, len(uploaded))
	for _, img := range uploaded {
		total += img.Size
		names = append(names, img.Name)
	}
	metrics.ObserveUpload(metrics.KindImage, len(uploaded), total)
	h.auditGallery(r, store.EventCategoryUpload, "images uploaded", map[string]any{
		"theme": theme,
		"files": names,
		"bytes": total,
	})
	h.notify(r, webhook.EventImagesUploaded, webhook.ImageEventData{
		Theme:  theme,
		Images: names,
		Bytes:  total,
		UserID: middleware.GetUserID(r),
	})

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "upload.success", len(uploaded)),
		"images":  uploaded,
	})
}

// DeleteImage handles DELETE /api/themes/{name}/images/{image}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	theme, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	image, ok := pathParam(w, r, "image")
	if !ok {
		return
	}

	if err := h.Repo.DeleteImage(r.Context(), theme, image); err != nil {
		h.writeGalleryError(w, r, subjectImage, err)
		return
	}
	if h.Thumbnails != nil {
		h.Thumbnails.Purge(r.Context(), theme, image)
	}

	slog.Info("image deleted", "theme", theme, "image", image, "user_id", middleware.GetUserID(r))
	h.auditGallery(r, store.EventCategoryGallery, "image deleted", map[string]any{"theme": theme, "image": image})
	h.notify(r, webhook.EventImageDeleted, webhook.ImageEventData{
		Theme:  theme,
		Images: []string{image},
		UserID: middleware.GetUserID(r),
	})

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "image.deleted"),
	})
}

// parseUpload reads a multipart body and returns the files of field. The
// body is capped at maxFiles*maxSize plus overhead; exceeding it is a
// "file too large" error. cleanup removes any spooled temporary files.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request, field string, maxFiles int, maxSize int64) ([]gallery.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit(maxFiles, maxSize))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, r, http.StatusBadRequest, "file_too_large", "upload.too_large")
		} else {
			writeError(w, r, http.StatusBadRequest, "no_files", "upload.no_files")
		}
		return nil, nil, false
	}
	cleanup := func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("failed to remove multipart temp files", "error", err)
		}
	}

	headers := r.MultipartForm.File[field]
	files := make([]gallery.Upload, 0, len(headers))
	for _, fh := range headers {
		files = append(files, formUpload(fh))
	}
	return files, cleanup, true
}

func formUpload(fh *multipart.FileHeader) gallery.Upload {
	return gallery.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
