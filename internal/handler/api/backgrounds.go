// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/metrics"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/store"
	"github.com/olegiv/neongallery/internal/webhook"
)

// BackgroundsResponse is the body of GET /api/backgrounds.
type BackgroundsResponse struct {
	Presets []gallery.Background `json:"presets"`
	Custom  []gallery.Background `json:"custom"`
}

// ListBackgrounds handles GET /api/backgrounds.
func (h *Handler) ListBackgrounds(w http.ResponseWriter, r *http.Request) {
	presets, custom, err := h.Backgrounds.List(r.Context())
	if err != nil {
		h.writeGalleryError(w, r, subjectBackground, err)
		return
	}
	if custom == nil {
		custom = []gallery.Background{}
	}
	writeJSON(w, http.StatusOK, BackgroundsResponse{Presets: presets, Custom: custom})
}

// UploadBackground handles POST /api/backgrounds with one file in the
// "background" field.
func (h *Handler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	files, cleanup, ok := h.parseUpload(w, r, "background", 1, h.cfg.MaxBackgroundSize)
	if !ok {
		return
	}
	defer cleanup()

	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, "no_files", "upload.no_files")
		return
	}
	if len(files) > 1 {
		writeError(w, r, http.StatusBadRequest, "too_many_files", "upload.too_many", 1)
		return
	}

	bg, err := h.Backgrounds.Put(r.Context(), files[0])
	if err != nil {
		h.writeGalleryError(w, r, subjectBackground, err)
		return
	}

	metrics.ObserveUpload(metrics.KindBackground, 1, bg.Size)
	h.auditGallery(r, store.EventCategoryUpload, "background uploaded", map[string]any{
		"background": bg.Name,
		"bytes":      bg.Size,
	})
	h.notify(r, webhook.EventBackgroundUploaded, webhook.BackgroundEventData{
		Background: bg.Name,
		Bytes:      bg.Size,
		UserID:     middleware.GetUserID(r),
	})

	writeSuccess(w, map[string]any{
		"message":    i18n.T(middleware.Lang(r), "background.uploaded"),
		"background": bg,
	})
}

// DeleteBackground handles DELETE /api/backgrounds/{name}.
func (h *Handler) DeleteBackground(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	if err := h.Backgrounds.Delete(r.Context(), name); err != nil {
		h.writeGalleryError(w, r, subjectBackground, err)
		return
	}

	slog.Info("background deleted", "background", name, "user_id", middleware.GetUserID(r))
	h.auditGallery(r, store.EventCategoryGallery, "background deleted", map[string]any{"background": name})
	h.notify(r, webhook.EventBackgroundDeleted, webhook.BackgroundEventData{Background: name, UserID: middleware.GetUserID(r)})

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "background.deleted"),
	})
}
