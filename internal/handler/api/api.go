// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers of the gallery.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/neongallery/internal/auth"
	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/imaging"
	"github.com/olegiv/neongallery/internal/logging"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/service"
	"github.com/olegiv/neongallery/internal/store"
)

// multipartOverhead is allowed on top of the file size limits for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Config holds the settings the handlers need from the application config.
type Config struct {
	PhoneRegion       string
	MaxFiles          int
	MaxImageSize      int64
	MaxBackgroundSize int64
	ExposeCodes       bool
	WeChatMock        bool
}

// Deps are the collaborators of the API handlers.
type Deps struct {
	Repo        gallery.Repository
	Backgrounds *gallery.Backgrounds
	Thumbnails  *imaging.Thumbnails
	Codes       *auth.CodeStore
	Sender      auth.Sender
	Accounts    *service.Accounts
	Protection  *middleware.LoginProtection
	Auditor     *logging.Auditor
	Sessions    *scs.SessionManager
	Events      EventLister
	Notifier    Notifier
	Jobs        JobRunner
}

// Notifier announces gallery changes to external systems.
type Notifier interface {
	DispatchEvent(ctx context.Context, eventType string, data any) error
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	Deps
	cfg Config
	now func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, cfg Config) *Handler {
	if deps.Sender == nil {
		deps.Sender = auth.LogSender{}
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 10
	}
	return &Handler{Deps: deps, cfg: cfg, now: time.Now}
}

// Register mounts the API routes on r. Mutating routes pass through the
// authorization gate; reads never do.
func (h *Handler) Register(r chi.Router, authz middleware.Authorizer, sendCodeLimit func(http.Handler) http.Handler) {
	gate := func(op middleware.Operation) func(http.Handler) http.Handler {
		return middleware.RequireOperation(authz, op)
	}
	if sendCodeLimit == nil {
		sendCodeLimit = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/themes", h.ListThemes)
	r.With(gate(middleware.OpCreateTheme)).Post("/themes", h.CreateTheme)
	r.With(gate(middleware.OpDeleteTheme)).Delete("/themes/{name}", h.DeleteTheme)
	r.Get("/themes/{name}/images", h.ListImages)
	r.With(gate(middleware.OpUploadImages)).Post("/themes/{name}/images", h.UploadImages)
	r.With(gate(middleware.OpDeleteImage)).Delete("/themes/{name}/images/{image}", h.DeleteImage)

	r.Get("/backgrounds", h.ListBackgrounds)
	r.With(gate(middleware.OpUploadBackground)).Post("/backgrounds", h.UploadBackground)
	r.With(gate(middleware.OpDeleteBackground)).Delete("/backgrounds/{name}", h.DeleteBackground)

	r.Get("/list-images", h.ListFolderImages)

	r.Route("/auth", func(r chi.Router) {
		r.With(sendCodeLimit).Post("/phone/send-code", h.SendCode)
		r.Post("/phone/verify", h.VerifyCode)
		r.Get("/wechat/qrcode", h.WeChatQRCode)
		r.Get("/wechat/callback", h.WeChatCallback)
		r.Post("/wechat/mock-login", h.WeChatMockLogin)
		r.Get("/me", h.Me)
		r.Post("/logout", h.Logout)
	})

	r.With(gate(middleware.OpViewEvents)).Get("/events", h.ListEvents)

	if h.Jobs != nil {
		r.With(gate(middleware.OpManageJobs)).Get("/jobs", h.ListJobs)
		r.With(gate(middleware.OpManageJobs)).Post("/jobs/{name}/run", h.RunJob)
	}
}

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a 200 response with "success": true added to data.
func writeSuccess(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	writeJSON(w, http.StatusOK, data)
}

// writeError writes a localized JSON error.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, key string, args ...any) {
	middleware.WriteAPIError(w, statusCode, code, i18n.T(middleware.Lang(r), key, args...))
}

// decodeJSON reads a JSON request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "error.invalid_request")
		return false
	}
	return true
}

// pathParam returns the decoded URL parameter key. chi matches on the
// escaped path when the request keeps one, so the value is unescaped only
// then; a bad escape is answered with 400.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw, true
	}
	v, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_path", "error.invalid_path")
		return "", false
	}
	return v, true
}

// Subjects name the resource a gallery error refers to.
const (
	subjectTheme      = "theme"
	subjectImage      = "image"
	subjectBackground = "background"
	subjectFolder     = "folder"
)

// writeGalleryError maps repository errors to status codes. Unknown
// errors are logged and reported as a generic 500.
func (h *Handler) writeGalleryError(w http.ResponseWriter, r *http.Request, subject string, err error) {
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", subject+".not_found")
	case errors.Is(err, gallery.ErrExists):
		writeError(w, r, http.StatusConflict, "exists", "theme.exists")
	case errors.Is(err, gallery.ErrInvalidPath):
		writeError(w, r, http.StatusBadRequest, "invalid_path", "folder.invalid")
	case errors.Is(err, gallery.ErrInvalidName):
		key := subject + ".invalid_name"
		if subject == subjectFolder {
			key = "folder.required"
		}
		writeError(w, r, http.StatusBadRequest, "invalid_name", key)
	case errors.Is(err, gallery.ErrUnsupportedType):
		writeError(w, r, http.StatusBadRequest, "unsupported_type", "upload.unsupported")
	case errors.Is(err, gallery.ErrTooLarge):
		writeError(w, r, http.StatusBadRequest, "file_too_large", "upload.too_large")
	case errors.Is(err, gallery.ErrNoFiles):
		writeError(w, r, http.StatusBadRequest, "no_files", "upload.no_files")
	case errors.Is(err, gallery.ErrTooManyFiles):
		writeError(w, r, http.StatusBadRequest, "too_many_files", "upload.too_many", h.cfg.MaxFiles)
	case errors.Is(err, gallery.ErrPresetBackground):
		writeError(w, r, http.StatusBadRequest, "preset_background", "background.preset")
	case errors.Is(err, imaging.ErrInvalidWidth):
		writeError(w, r, http.StatusBadRequest, "invalid_width", "thumb.invalid_width")
	default:
		slog.Error("gallery operation failed", "subject", subject, "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
	}
}

// auditGallery stores a gallery change in the event log. Failures are only
// logged; the change itself has already happened.
func (h *Handler) auditGallery(r *http.Request, category, message string, metadata map[string]any) {
	if h.Auditor == nil {
		return
	}
	if err := h.Auditor.Log(r.Context(), store.EventLevelInfo, category, message, middleware.GetUserIDPtr(r), metadata); err != nil {
		slog.Error("failed to write audit event", "message", message, "error", err)
	}
}

// notify dispatches a webhook event when a notifier is configured.
func (h *Handler) notify(r *http.Request, eventType string, data any) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.DispatchEvent(context.WithoutCancel(r.Context()), eventType, data); err != nil {
		slog.Warn("failed to dispatch webhook event", "event", eventType, "error", err)
	}
}

// isBodyTooLarge reports whether err came from http.MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func uploadLimit(files int, perFile int64) int64 {
	return int64(files)*perFile + multipartOverhead
}
