// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/util"
)

// PagesHandler serves the frontend pages and assets from the public
// directory.
type PagesHandler struct {
	publicDir string
}

// NewPagesHandler creates a PagesHandler on publicDir.
func NewPagesHandler(publicDir string) *PagesHandler {
	return &PagesHandler{publicDir: publicDir}
}

// Home serves the gallery home page.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, PageIndex)
}

// Theme serves the theme page. The page reads the theme name from the URL.
func (h *PagesHandler) Theme(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, PageTheme)
}

// Admin serves the admin panel. Access is enforced by the API it calls.
func (h *PagesHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, PageAdmin)
}

// Login serves the login page.
func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, PageLogin)
}

func (h *PagesHandler) servePage(w http.ResponseWriter, r *http.Request, page string) {
	w.Header().Set("Cache-Control", "no-cache")
	h.serveFile(w, r, page)
}

// serveFile serves a regular file below the public directory. Directories
// are never listed.
func (h *PagesHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	p, err := util.SafeJoinPath(h.publicDir, filepath.FromSlash(name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(p)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// NotFound is the router fallback. API paths get a JSON 404; anything else
// is looked up as a static asset. Hidden files are never served.
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		writeJSONError(w, http.StatusNotFound, "not_found", i18n.T(middleware.Lang(r), "error.not_found"))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	for _, seg := range strings.Split(name, "/") {
		if util.IsHidden(seg) {
			http.NotFound(w, r)
			return
		}
	}
	h.serveFile(w, r, name)
}

// MethodNotAllowed writes a JSON 405 for API paths.
func (h *PagesHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", i18n.T(middleware.Lang(r), "error.method_not_allowed"))
		return
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func isAPIPath(p string) bool {
	return p == RouteAPI || strings.HasPrefix(p, RouteAPI+"/")
}
