// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/imaging"
)

// maxManifestSize caps the decoded manifest.
const maxManifestSize = 8 << 20

// ErrNoManifest is returned for archives without a manifest.
var ErrNoManifest = errors.New(ManifestName + " not found in zip archive")

// Target is the gallery an Importer writes to.
type Target interface {
	CreateTheme(ctx context.Context, name string) (gallery.Theme, error)
	PutImages(ctx context.Context, theme string, files []gallery.Upload) ([]gallery.UploadedImage, error)
}

// ImportOptions controls an import.
type ImportOptions struct {
	DryRun    bool // Validate only
	BatchSize int  // Images per PutImages call, at most the repository's file limit
}

// ImportError is a theme or image that could not be imported.
type ImportError struct {
	Theme   string `json:"theme"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	DryRun         bool          `json:"dry_run"`
	ThemesCreated  int           `json:"themes_created"`
	ThemesExisting int           `json:"themes_existing"`
	ImagesImported int           `json:"images_imported"`
	Errors         []ImportError `json:"errors,omitempty"`
}

// Success reports whether the import had no errors.
func (r *ImportResult) Success() bool {
	return len(r.Errors) == 0
}

// Importer reads zip archives written by an Exporter.
type Importer struct {
	dst    Target
	logger *slog.Logger
}

// NewImporter creates a new importer writing to dst.
func NewImporter(dst Target, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{dst: dst, logger: logger}
}

// ImportFromZipFile imports from a zip file path.
func (i *Importer) ImportFromZipFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip file: %w", err)
	}
	defer func() { _ = zr.Close() }()

	return i.ImportFromZip(ctx, &zr.Reader, opts)
}

// ImportFromZip imports every theme of the manifest. Themes are created
// when missing. Images go in batches, each stored completely or not at
// all; a failed batch is reported and the import goes on.
func (i *Importer) ImportFromZip(ctx context.Context, zr *zip.Reader, opts ImportOptions) (*ImportResult, error) {
	manifest, err := ReadManifest(zr)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	result := &ImportResult{DryRun: opts.DryRun}
	for _, mt := range manifest.Themes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		uploads := i.collect(mt, entries, result)
		if opts.DryRun {
			result.ImagesImported += len(uploads)
			continue
		}

		name, ok := i.ensureTheme(ctx, mt.Name, result)
		if !ok {
			continue
		}
		i.putBatches(ctx, name, uploads, opts.BatchSize, result)
	}

	i.logger.Info("archive imported",
		"dry_run", opts.DryRun,
		"themes_created", result.ThemesCreated,
		"images", result.ImagesImported,
		"errors", len(result.Errors))
	return result, nil
}

// ReadManifest decodes the manifest of an archive.
func ReadManifest(zr *zip.Reader) (*Manifest, error) {
	for _, f := range zr.File {
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", ManifestName, err)
		}
		defer func() { _ = rc.Close() }()

		var m Manifest
		if err := json.NewDecoder(io.LimitReader(rc, maxManifestSize)).Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
		}
		if m.Version != ExportVersion {
			return nil, fmt.Errorf("unsupported archive version %q", m.Version)
		}
		return &m, nil
	}
	return nil, ErrNoManifest
}

// collect resolves the manifest images of one theme to archive entries.
func (i *Importer) collect(mt ManifestTheme, entries map[string]*zip.File, result *ImportResult) []gallery.Upload {
	uploads := make([]gallery.Upload, 0, len(mt.Images))
	for _, img := range mt.Images {
		theme, name, ok := parseEntryPath(img.Path)
		if !ok || theme != mt.Name {
			result.Errors = append(result.Errors, ImportError{Theme: mt.Name, File: img.Path, Message: "invalid archive path"})
			continue
		}
		f, ok := entries[img.Path]
		if !ok || f.FileInfo().IsDir() {
			result.Errors = append(result.Errors, ImportError{Theme: mt.Name, File: img.Path, Message: "missing from archive"})
			continue
		}
		uploads = append(uploads, zipUpload(f, name))
	}
	return uploads
}

func (i *Importer) ensureTheme(ctx context.Context, raw string, result *ImportResult) (string, bool) {
	name, err := gallery.SanitizeThemeName(raw)
	if err != nil {
		result.Errors = append(result.Errors, ImportError{Theme: raw, Message: err.Error()})
		return "", false
	}
	_, err = i.dst.CreateTheme(ctx, name)
	switch {
	case err == nil:
		result.ThemesCreated++
	case errors.Is(err, gallery.ErrExists):
		result.ThemesExisting++
	default:
		result.Errors = append(result.Errors, ImportError{Theme: raw, Message: err.Error()})
		return "", false
	}
	return name, true
}

func (i *Importer) putBatches(ctx context.Context, theme string, uploads []gallery.Upload, size int, result *ImportResult) {
	for start := 0; start < len(uploads); start += size {
		batch := uploads[start:min(start+size, len(uploads))]
		stored, err := i.dst.PutImages(ctx, theme, batch)
		if err != nil {
			i.logger.Warn("import batch rejected", "theme", theme, "files", len(batch), "error", err)
			for _, u := range batch {
				result.Errors = append(result.Errors, ImportError{Theme: theme, File: u.Filename, Message: err.Error()})
			}
			continue
		}
		result.ImagesImported += len(stored)
	}
}

// zipUpload adapts an archive entry to a gallery upload. The declared size
// comes from the entry header; the repository enforces its limit while
// copying regardless.
func zipUpload(f *zip.File, name string) gallery.Upload {
	return gallery.Upload{
		Filename:    name,
		ContentType: imaging.MimeTypeFromExtension(name),
		Size:        int64(min(f.UncompressedSize64, 1<<62)),
		Open: func() (io.ReadCloser, error) {
			return f.Open()
		},
	}
}
