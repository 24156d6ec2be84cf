// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olegiv/neongallery/internal/gallery"
)

// Source is the gallery an Exporter reads from.
type Source interface {
	ListThemes(ctx context.Context) ([]gallery.Theme, error)
	ListImages(ctx context.Context, theme string) ([]gallery.Image, error)
	OpenImage(ctx context.Context, theme, image string) (*os.File, os.FileInfo, error)
}

// Exporter writes themes to zip archives.
type Exporter struct {
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter reading from src.
func NewExporter(src Source, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{src: src, logger: logger, now: time.Now}
}

// Export writes the named themes, or all themes when names is empty, as a
// zip archive to w.
func (e *Exporter) Export(ctx context.Context, names []string, w io.Writer) (*Manifest, error) {
	if len(names) == 0 {
		themes, err := e.src.ListThemes(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing themes: %w", err)
		}
		for _, t := range themes {
			names = append(names, t.Name)
		}
	}

	manifest := &Manifest{
		Version:    ExportVersion,
		ExportedAt: e.now().UTC(),
		Themes:     make([]ManifestTheme, 0, len(names)),
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		theme, err := e.exportTheme(ctx, zw, name)
		if err != nil {
			return nil, err
		}
		manifest.Themes = append(manifest.Themes, theme)
	}

	mw, err := zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", ManifestName, err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("writing %s: %w", ManifestName, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	return manifest, nil
}

// ExportToFile writes an archive to path. A failed export leaves no file.
func (e *Exporter) ExportToFile(ctx context.Context, names []string, path string) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	manifest, err := e.Export(ctx, names, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return manifest, nil
}

func (e *Exporter) exportTheme(ctx context.Context, zw *zip.Writer, name string) (ManifestTheme, error) {
	images, err := e.src.ListImages(ctx, name)
	if err != nil {
		return ManifestTheme{}, fmt.Errorf("listing images of %q: %w", name, err)
	}

	theme := ManifestTheme{Name: name, Images: make([]ManifestImage, 0, len(images))}
	for _, img := range images {
		entry, err := e.addImage(ctx, zw, name, img.Name)
		if err != nil {
			return ManifestTheme{}, err
		}
		theme.Images = append(theme.Images, entry)
	}
	e.logger.Debug("theme exported", "theme", name, "images", len(theme.Images))
	return theme, nil
}

func (e *Exporter) addImage(ctx context.Context, zw *zip.Writer, theme, image string) (ManifestImage, error) {
	f, info, err := e.src.OpenImage(ctx, theme, image)
	if err != nil {
		return ManifestImage{}, fmt.Errorf("opening %s/%s: %w", theme, image, err)
	}
	defer func() { _ = f.Close() }()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return ManifestImage{}, fmt.Errorf("failed to create file header: %w", err)
	}
	header.Name = entryPath(theme, image)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return ManifestImage{}, fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return ManifestImage{}, fmt.Errorf("failed to write %s: %w", header.Name, err)
	}

	return ManifestImage{
		Name:    image,
		Path:    header.Name,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}, nil
}
