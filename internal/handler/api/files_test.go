// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/testutil"
)

func seedTheme(t *testing.T, env *testEnv, theme string, files map[string][]byte) {
	t.Helper()
	dir := filepath.Join(env.root, theme)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

func TestListFolderImages(t *testing.T) {
	env := newTestEnv(t)
	png := testutil.PNG(t, 2, 2)
	seedTheme(t, env, "Neon", map[string][]byte{
		"b.png":       png,
		"a.png":       png,
		"notes.txt":   []byte("skip"),
		"C.jpeg":      png,
		".hidden.png": png,
	})

	var got struct {
		Success bool     `json:"success"`
		Folder  string   `json:"folder"`
		Count   int      `json:"count"`
		Files   []string `json:"files"`
	}
	resp := env.getJSON(env.client(), "/api/list-images?folder=Neon", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.True(t, got.Success)
	assert.Equal(t, "Neon", got.Folder)
	if diff := cmp.Diff([]string{"C.jpeg", "a.png", "b.png"}, got.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(got.Files), got.Count)
}

func TestListFolderImages_Errors(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
	}{
		{"missing folder", "", http.StatusBadRequest, "invalid_name"},
		{"traversal", "?folder=../../etc", http.StatusBadRequest, "invalid_path"},
		{"encoded traversal", "?folder=..%2F..%2Fetc", http.StatusBadRequest, "invalid_path"},
		{"reserved", "?folder=api", http.StatusBadRequest, "invalid_path"},
		{"absent", "?folder=Nope", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(c, http.MethodGet, "/api/list-images"+tt.query, nil, "")
			assert.Equal(t, tt.wantCode, resp.StatusCode, resp.Body)
			assert.Equal(t, tt.wantErr, decodeError(t, resp).Code)
		})
	}
}

func TestServeImage(t *testing.T) {
	env := newTestEnv(t)
	png := testutil.PNG(t, 4, 4)
	seedTheme(t, env, "Neon", map[string][]byte{"a.png": png})
	c := env.client()

	resp := env.do(c, http.MethodGet, "/images/Neon/a.png", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, string(png), resp.Body)

	resp = env.do(c, http.MethodGet, "/images/Neon/missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(c, http.MethodGet, "/images/..%2F..%2Fetc/passwd", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeThumbnail(t *testing.T) {
	env := newTestEnv(t)
	seedTheme(t, env, "Neon", map[string][]byte{"wide.png": testutil.PNG(t, 400, 200)})
	c := env.client()

	resp := env.do(c, http.MethodGet, "/thumbs/Neon/wide.png?w=160", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	cfg, _, err := image.DecodeConfig(bytes.NewReader([]byte(resp.Body)))
	require.NoError(t, err)
	assert.Equal(t, 160, cfg.Width)
	assert.Equal(t, 80, cfg.Height)

	// Served from cache the second time, same bytes.
	again := env.do(c, http.MethodGet, "/thumbs/Neon/wide.png?w=160", nil, "")
	assert.Equal(t, resp.Body, again.Body)

	// Narrower sources keep their size.
	resp = env.do(c, http.MethodGet, "/thumbs/Neon/wide.png?w=640", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cfg, _, err = image.DecodeConfig(bytes.NewReader([]byte(resp.Body)))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)

	for _, w := range []string{"100", "abc"} {
		resp = env.do(c, http.MethodGet, "/thumbs/Neon/wide.png?w="+w, nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, w)
		assert.Equal(t, "invalid_width", decodeError(t, resp).Code)
	}
}

func TestBackgrounds(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(adminPhone)
	png := testutil.PNG(t, 3, 3)

	var list BackgroundsResponse
	env.getJSON(admin, "/api/backgrounds", &list)
	assert.Len(t, list.Presets, len(gallery.Presets))
	assert.Empty(t, list.Custom)

	body, ct := multipartBody(t, formFile{"background", "sky.png", "image/png", png})
	resp := env.do(admin, http.MethodPost, "/api/backgrounds", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	var uploaded struct {
		Background gallery.Background `json:"background"`
	}
	decodeInto(t, resp, &uploaded)
	assert.Equal(t, gallery.BackgroundCustom, uploaded.Background.Type)
	assert.Equal(t, gallery.BackgroundURL(uploaded.Background.Name), uploaded.Background.URL)

	resp = env.do(admin, http.MethodGet, uploaded.Background.URL, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(png), resp.Body)

	list = BackgroundsResponse{}
	env.getJSON(admin, "/api/backgrounds", &list)
	require.Len(t, list.Custom, 1)

	resp = env.do(admin, http.MethodDelete, "/api/backgrounds/"+uploaded.Background.Name, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	resp = env.do(admin, http.MethodGet, uploaded.Background.URL, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadBackground_Rejections(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(adminPhone)
	png := testutil.PNG(t, 3, 3)

	body, ct := multipartBody(t,
		formFile{"background", "a.png", "image/png", png},
		formFile{"background", "b.png", "image/png", png},
	)
	resp := env.do(admin, http.MethodPost, "/api/backgrounds", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "too_many_files", decodeError(t, resp).Code)

	body, ct = multipartBody(t, formFile{"background", "a.gif", "image/gif", []byte("not really a gif")})
	resp = env.do(admin, http.MethodPost, "/api/backgrounds", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_type", decodeError(t, resp).Code)

	entries, err := os.ReadDir(env.bgDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.Name()[0] == '.', "unexpected background %s", e.Name())
	}
}
