// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var defaultReserved = []string{".*", "public", "node_modules", "routes", "models", "middleware", "api", "data", "backgrounds", "static"}

// fixedClock returns a clock stuck at one instant.
func fixedClock() func() time.Time {
	at := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return at }
}

func newTestRepo(t *testing.T, mutate ...func(*Options)) *FSRepository {
	t.Helper()
	opts := Options{
		Root:                t.TempDir(),
		Reserved:            defaultReserved,
		CreateMissingThemes: true,
		MaxImageSize:        1 << 20,
		MaxFiles:            10,
		Now:                 fixedClock(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	repo, err := NewFSRepository(opts)
	if err != nil {
		t.Fatalf("NewFSRepository: %v", err)
	}
	return repo
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func memUpload(name, contentType string, data []byte) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
