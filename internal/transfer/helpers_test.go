// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) *gallery.FSRepository {
	t.Helper()
	repo, err := gallery.NewFSRepository(gallery.Options{
		Root:         filepath.Join(t.TempDir(), "gallery"),
		Reserved:     []string{".*", "api"},
		MaxImageSize: 1 << 20,
		MaxFiles:     10,
	})
	require.NoError(t, err)
	return repo
}

// pngBytes returns a distinct small PNG per seed.
func pngBytes(t *testing.T, seed uint8) []byte {
	t.Helper()
	return testutil.PNG(t, int(seed)+1, 2)
}

// seed writes files straight into a theme directory.
func seed(t *testing.T, repo *gallery.FSRepository, theme string, files map[string][]byte) {
	t.Helper()
	dir := filepath.Join(repo.Root(), theme)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

type zipEntry struct {
	name string
	data []byte
}

// buildZip writes a raw archive, manifest first when m is not nil.
func buildZip(t *testing.T, m *Manifest, entries ...zipEntry) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if m != nil {
		w, err := zw.Create(ManifestName)
		require.NoError(t, err)
		require.NoError(t, json.NewEncoder(w).Encode(m))
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if !errors.Is(err, zip.ErrInsecurePath) {
		require.NoError(t, err)
	}
	return zr
}

func imageNames(t *testing.T, repo *gallery.FSRepository, theme string) []string {
	t.Helper()
	images, err := repo.ListImages(context.Background(), theme)
	require.NoError(t, err)
	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, img.Name)
	}
	return names
}
