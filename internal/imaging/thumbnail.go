// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/olegiv/neongallery/internal/cache"
)

// ThumbnailWidths lists the widths a thumbnail may be requested at.
var ThumbnailWidths = []int{160, 320, 640, 1280}

// DefaultThumbnailWidth is used when no width is requested.
const DefaultThumbnailWidth = 320

// ErrInvalidWidth is returned for widths outside ThumbnailWidths.
var ErrInvalidWidth = errors.New("unsupported thumbnail width")

// maxSourceSize caps how much of a source file is read for a thumbnail.
const maxSourceSize = 32 << 20

// Thumbnails renders thumbnails and keeps them in a cache. Cache keys embed
// the source modification time and size, so replacing a file invalidates
// its thumbnails without explicit purging.
type Thumbnails struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewThumbnails creates a thumbnail renderer backed by c.
func NewThumbnails(c cache.Cache, ttl time.Duration) *Thumbnails {
	return &Thumbnails{cache: c, ttl: ttl}
}

// Thumbnail is a rendered thumbnail.
type Thumbnail struct {
	Data        []byte
	ContentType string
}

// KeyPrefix returns the cache key prefix for every thumbnail of theme/name.
func KeyPrefix(theme, name string) string {
	return "thumb:" + theme + "/" + name + ":"
}

func thumbKey(theme, name string, info os.FileInfo, width int) string {
	return fmt.Sprintf("%s%d:%d:%d", KeyPrefix(theme, name), info.ModTime().UnixNano(), info.Size(), width)
}

// Get returns the thumbnail of the opened image file f at width.
func (t *Thumbnails) Get(ctx context.Context, theme, name string, f *os.File, info os.FileInfo, width int) (*Thumbnail, error) {
	if !slices.Contains(ThumbnailWidths, width) {
		return nil, ErrInvalidWidth
	}

	key := thumbKey(theme, name, info, width)
	if cached, err := t.cache.Get(ctx, key); err == nil && len(cached) > 0 {
		return &Thumbnail{Data: cached, ContentType: DetectMimeType(cached)}, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("reading source image: %w", err)
	}

	out, contentType, err := Render(data, width)
	if err != nil {
		return nil, err
	}

	if err := t.cache.Set(ctx, key, out, t.ttl); err != nil {
		slog.Warn("failed to cache thumbnail", "key", key, "error", err)
	}
	return &Thumbnail{Data: out, ContentType: contentType}, nil
}

// Purge drops cached thumbnails of theme/name. An empty name purges the theme.
func (t *Thumbnails) Purge(ctx context.Context, theme, name string) {
	prefix := "thumb:" + theme + "/"
	if name != "" {
		prefix = KeyPrefix(theme, name)
	}
	if err := t.cache.DeleteByPrefix(ctx, prefix); err != nil {
		slog.Warn("failed to purge thumbnails", "prefix", prefix, "error", err)
	}
}
