// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer moves themes between galleries as zip archives.
//
// An archive holds manifest.json and one entry per image under
// themes/<theme>/<image>. Only images listed in the manifest are
// imported.
package transfer

import (
	"path"
	"strings"
	"time"

	"github.com/olegiv/neongallery/internal/util"
)

// ExportVersion is the current version of the archive format.
const ExportVersion = "1.0"

// ManifestName is the archive entry holding the Manifest.
const ManifestName = "manifest.json"

// themesDir is the archive directory holding theme images.
const themesDir = "themes"

// Manifest describes the contents of an archive.
type Manifest struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Themes     []ManifestTheme `json:"themes"`
}

// ManifestTheme is one exported theme.
type ManifestTheme struct {
	Name   string          `json:"name"`
	Images []ManifestImage `json:"images"`
}

// ManifestImage is one exported image.
type ManifestImage struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// ImageCount returns the number of images over all themes.
func (m *Manifest) ImageCount() int {
	n := 0
	for _, t := range m.Themes {
		n += len(t.Images)
	}
	return n
}

// entryPath returns the archive path of an image.
func entryPath(theme, image string) string {
	return path.Join(themesDir, theme, image)
}

// parseEntryPath splits themes/<theme>/<image>, rejecting anything that
// could leave the theme directory on extraction.
func parseEntryPath(p string) (theme, image string, ok bool) {
	parts := strings.Split(p, "/")
	if len(parts) != 3 || parts[0] != themesDir {
		return "", "", false
	}
	theme, image = parts[1], parts[2]
	if !util.IsBareName(theme) || !util.IsBareName(image) || util.IsHidden(image) {
		return "", "", false
	}
	return theme, image, true
}
