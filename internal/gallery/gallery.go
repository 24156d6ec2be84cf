// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gallery stores themes and images on the filesystem. A theme is a
// directory directly under the root; its images are the recognised image
// files directly inside it.
package gallery

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// PlaceholderCover is the cover URL of a theme without images.
const PlaceholderCover = "/placeholder.svg"

// Theme describes one theme directory.
type Theme struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Cover       string `json:"cover"`
	ImageCount  int    `json:"imageCount"`
}

// Image describes one stored image.
type Image struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Theme   string    `json:"theme"`
	ModTime time.Time `json:"modifiedAt"`
}

// UploadedImage is an Image returned by an upload, with its pixel size
// when the header could be decoded.
type UploadedImage struct {
	Image
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Upload is one file of an upload request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Repository is the storage boundary of the gallery. Handlers depend on
// it rather than on the filesystem.
type Repository interface {
	ListThemes(ctx context.Context) ([]Theme, error)
	CreateTheme(ctx context.Context, name string) (Theme, error)
	DeleteTheme(ctx context.Context, name string) error
	ListImages(ctx context.Context, theme string) ([]Image, error)
	PutImages(ctx context.Context, theme string, files []Upload) ([]UploadedImage, error)
	DeleteImage(ctx context.Context, theme, image string) error
	OpenImage(ctx context.Context, theme, image string) (*os.File, os.FileInfo, error)
	ListFolder(ctx context.Context, folder string) (Folder, error)
}

// Options configures an FSRepository.
type Options struct {
	Root                string
	Reserved            []string
	CreateMissingThemes bool
	MaxImageSize        int64
	MaxFiles            int

	// Now is used to timestamp uploaded file names. Defaults to time.Now.
	Now func() time.Time
}

// FSRepository is a Repository on a local directory tree.
type FSRepository struct {
	root          string
	reserved      *reservedNames
	createMissing bool
	maxSize       int64
	maxFiles      int
	now           func() time.Time
	locks         *keyedMutex
}

var _ Repository = (*FSRepository)(nil)

// NewFSRepository creates the root directory if needed and returns a
// repository on it.
func NewFSRepository(opts Options) (*FSRepository, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("gallery root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving gallery root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating gallery root: %w", err)
	}

	reserved, err := compileReserved(opts.Reserved)
	if err != nil {
		return nil, err
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 10
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = 10 << 20
	}

	return &FSRepository{
		root:          root,
		reserved:      reserved,
		createMissing: opts.CreateMissingThemes,
		maxSize:       opts.MaxImageSize,
		maxFiles:      opts.MaxFiles,
		now:           opts.Now,
		locks:         newKeyedMutex(),
	}, nil
}

// Root returns the absolute root directory.
func (r *FSRepository) Root() string {
	return r.root
}

// IsReserved reports whether name is excluded from being a theme.
func (r *FSRepository) IsReserved(name string) bool {
	return r.reserved.match(name)
}

// ImageURL returns the public URL of an image.
func ImageURL(theme, name string) string {
	return "/images/" + url.PathEscape(theme) + "/" + url.PathEscape(name)
}

func newImage(theme string, info os.FileInfo) Image {
	return Image{
		Name:    info.Name(),
		URL:     ImageURL(theme, info.Name()),
		Path:    theme + "/" + info.Name(),
		Size:    info.Size(),
		Theme:   theme,
		ModTime: info.ModTime(),
	}
}
