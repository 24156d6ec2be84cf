// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListThemes(t *testing.T) {
	repo := newTestRepo(t)
	root := repo.Root()
	img := pngBytes(t)

	writeFile(t, filepath.Join(root, "zebra", "b.png"), img)
	writeFile(t, filepath.Join(root, "zebra", "a.JPG"), img)
	writeFile(t, filepath.Join(root, "zebra", "notes.txt"), []byte("x"))
	writeFile(t, filepath.Join(root, "zebra", ".hidden.png"), img)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zebra", "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "apple"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, "loose.png"), img)

	themes, err := repo.ListThemes(context.Background())
	require.NoError(t, err)

	want := []Theme{
		{Name: "apple", DisplayName: "apple", Cover: PlaceholderCover, ImageCount: 0},
		{Name: "zebra", DisplayName: "zebra", Cover: "/images/zebra/a.JPG", ImageCount: 2},
	}
	if diff := cmp.Diff(want, themes); diff != "" {
		t.Errorf("ListThemes() mismatch (-want +got):\n%s", diff)
	}
}

func TestListThemes_MissingRoot(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, os.RemoveAll(repo.Root()))

	_, err := repo.ListThemes(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "a missing root is an I/O fault, not a 404")
}

func TestCreateTheme(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	theme, err := repo.CreateTheme(ctx, "  Neon/*Test ")
	require.NoError(t, err)
	assert.Equal(t, Theme{Name: "NeonTest", DisplayName: "NeonTest", Cover: PlaceholderCover}, theme)
	assert.DirExists(t, filepath.Join(repo.Root(), "NeonTest"))

	_, err = repo.CreateTheme(ctx, "NeonTest")
	assert.ErrorIs(t, err, ErrExists)

	// sanitizes to the same existing name
	_, err = repo.CreateTheme(ctx, "Neon?Test")
	assert.ErrorIs(t, err, ErrExists)
}

func TestCreateTheme_Rejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"", `/\*?`, "node_modules", "Public", ".git", ".."} {
		_, err := repo.CreateTheme(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	entries, err := os.ReadDir(repo.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected names must not create anything")
}

func TestCreateTheme_ConcurrentSameName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var created, exists atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateTheme(ctx, "race")
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, ErrExists):
				exists.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(19), exists.Load())
}

func TestDeleteTheme(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	img := pngBytes(t)

	writeFile(t, filepath.Join(repo.Root(), "cats", "a.png"), img)
	writeFile(t, filepath.Join(repo.Root(), "dogs", "a.png"), img)

	require.NoError(t, repo.DeleteTheme(ctx, "cats"))

	_, err := repo.ListImages(ctx, "cats")
	assert.ErrorIs(t, err, ErrNotFound)

	themes, err := repo.ListThemes(ctx)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, "dogs", themes[0].Name)
	assert.Equal(t, 1, themes[0].ImageCount)

	assert.ErrorIs(t, repo.DeleteTheme(ctx, "cats"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTheme(ctx, "../dogs"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTheme(ctx, "node_modules"), ErrNotFound)
}

func TestDeleteTheme_RegularFileIsNotATheme(t *testing.T) {
	repo := newTestRepo(t)
	writeFile(t, filepath.Join(repo.Root(), "README"), []byte("x"))

	assert.ErrorIs(t, repo.DeleteTheme(context.Background(), "README"), ErrNotFound)
	assert.FileExists(t, filepath.Join(repo.Root(), "README"))
}

func TestListImages(t *testing.T) {
	repo := newTestRepo(t)
	img := pngBytes(t)
	dir := filepath.Join(repo.Root(), "猫")

	writeFile(t, filepath.Join(dir, "c.webp"), img)
	writeFile(t, filepath.Join(dir, "a b.png"), img)
	writeFile(t, filepath.Join(dir, "B.gif"), img)
	writeFile(t, filepath.Join(dir, "doc.pdf"), img)

	images, err := repo.ListImages(context.Background(), "猫")
	require.NoError(t, err)

	var names, urls []string
	for _, im := range images {
		names = append(names, im.Name)
		urls = append(urls, im.URL)
		assert.Equal(t, int64(len(img)), im.Size)
		assert.Equal(t, "猫/"+im.Name, im.Path)
	}
	assert.Equal(t, []string{"B.gif", "a b.png", "c.webp"}, names)
	assert.Equal(t, "/images/%E7%8C%AB/a%20b.png", urls[1])
}

func TestListImages_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"missing", "", "..", "a/b", "node_modules", "Neon*Test"} {
		_, err := repo.ListImages(ctx, name)
		assert.ErrorIs(t, err, ErrNotFound, "theme %q", name)
	}
}

func TestImageCountMatchesListing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	img := pngBytes(t)

	writeFile(t, filepath.Join(repo.Root(), "one", "a.png"), img)
	writeFile(t, filepath.Join(repo.Root(), "one", "b.bmp"), img)
	writeFile(t, filepath.Join(repo.Root(), "two", "x.jpeg"), img)
	writeFile(t, filepath.Join(repo.Root(), "two", "y.GIF"), img)
	writeFile(t, filepath.Join(repo.Root(), "two", ".z.png"), img)

	themes, err := repo.ListThemes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, themes)

	for _, th := range themes {
		images, err := repo.ListImages(ctx, th.Name)
		require.NoError(t, err)
		assert.Equal(t, th.ImageCount, len(images), "theme %q", th.Name)
		if len(images) > 0 {
			assert.Equal(t, images[0].URL, th.Cover)
		}
	}
}

func TestThemesCreatedOnDisk(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	img := pngBytes(t)

	names := []string{"Cafe\u0301", "x:y", "a<b", " padded", strings.Repeat("n", MaxNameLength+5)}
	for _, name := range names {
		writeFile(t, filepath.Join(repo.Root(), name, "a.png"), img)
	}

	themes, err := repo.ListThemes(ctx)
	require.NoError(t, err)
	require.Len(t, themes, len(names))

	for _, th := range themes {
		images, err := repo.ListImages(ctx, th.Name)
		require.NoError(t, err, "theme %q", th.Name)
		assert.Equal(t, th.ImageCount, len(images), "theme %q", th.Name)

		f, _, err := repo.OpenImage(ctx, th.Name, "a.png")
		require.NoError(t, err, "theme %q", th.Name)
		_ = f.Close()

		uploaded, err := repo.PutImages(ctx, th.Name, []Upload{memUpload("b.png", "image/png", img)})
		require.NoError(t, err, "theme %q", th.Name)
		require.NoError(t, repo.DeleteImage(ctx, th.Name, uploaded[0].Name), "theme %q", th.Name)

		require.NoError(t, repo.DeleteTheme(ctx, th.Name), "theme %q", th.Name)
		assert.NoDirExists(t, filepath.Join(repo.Root(), th.Name))
	}
}

func TestPutImages_LazyCreateNeedsCleanName(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.PutImages(context.Background(), "x:z", []Upload{memUpload("a.png", "image/png", pngBytes(t))})
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.NoDirExists(t, filepath.Join(repo.Root(), "x:z"))
}

func TestDeleteImage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(repo.Root(), "cats", "a.png"), pngBytes(t))
	writeFile(t, filepath.Join(repo.Root(), "secret.png"), pngBytes(t))

	require.NoError(t, repo.DeleteImage(ctx, "cats", "a.png"))
	assert.NoFileExists(t, filepath.Join(repo.Root(), "cats", "a.png"))

	assert.ErrorIs(t, repo.DeleteImage(ctx, "cats", "a.png"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteImage(ctx, "dogs", "a.png"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteImage(ctx, "cats", "../secret.png"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteImage(ctx, "cats", "notes.txt"), ErrNotFound)
	assert.FileExists(t, filepath.Join(repo.Root(), "secret.png"))
}

func TestOpenImage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	data := pngBytes(t)
	writeFile(t, filepath.Join(repo.Root(), "cats", "a.png"), data)

	f, info, err := repo.OpenImage(ctx, "cats", "a.png")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, int64(len(data)), info.Size())

	_, _, err = repo.OpenImage(ctx, "cats", "b.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = repo.OpenImage(ctx, "node_modules", "a.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenImage_SymlinkRefused(t *testing.T) {
	repo := newTestRepo(t)
	outside := filepath.Join(t.TempDir(), "outside.png")
	writeFile(t, outside, pngBytes(t))
	require.NoError(t, os.MkdirAll(filepath.Join(repo.Root(), "cats"), 0o755))
	if err := os.Symlink(outside, filepath.Join(repo.Root(), "cats", "link.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, _, err := repo.OpenImage(context.Background(), "cats", "link.png")
	assert.ErrorIs(t, err, ErrNotFound)

	images, err := repo.ListImages(context.Background(), "cats")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestListFolder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	img := pngBytes(t)

	writeFile(t, filepath.Join(repo.Root(), "cats", "z.png"), img)
	writeFile(t, filepath.Join(repo.Root(), "cats", "a.jpg"), img)
	writeFile(t, filepath.Join(repo.Root(), "cats", "readme.md"), img)
	writeFile(t, filepath.Join(repo.Root(), "cats", "kittens", "k.png"), img)

	got, err := repo.ListFolder(ctx, "cats")
	require.NoError(t, err)
	if diff := cmp.Diff(Folder{Folder: "cats", Count: 2, Files: []string{"a.jpg", "z.png"}}, got); diff != "" {
		t.Errorf("ListFolder mismatch (-want +got):\n%s", diff)
	}

	nested, err := repo.ListFolder(ctx, "/cats/kittens/")
	require.NoError(t, err)
	assert.Equal(t, []string{"k.png"}, nested.Files)
	assert.Equal(t, "cats/kittens", nested.Folder)
}

func TestListFolder_Errors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(repo.Root(), "cats", "a.png"), pngBytes(t))
	writeFile(t, filepath.Join(repo.Root(), "file.png"), pngBytes(t))

	tests := []struct {
		folder string
		want   error
	}{
		{"", ErrInvalidName},
		{"   ", ErrInvalidName},
		{"../../etc", ErrInvalidPath},
		{"cats/../../etc", ErrInvalidPath},
		{"node_modules", ErrInvalidPath},
		{".staging", ErrInvalidPath},
		{"dogs", ErrNotFound},
		{"file.png", ErrNotFound},
	}

	for _, tt := range tests {
		_, err := repo.ListFolder(ctx, tt.folder)
		assert.ErrorIs(t, err, tt.want, "folder %q", tt.folder)
	}
}

func TestListFolder_SymlinkEscape(t *testing.T) {
	repo := newTestRepo(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "passwd.png"), pngBytes(t))
	if err := os.Symlink(outside, filepath.Join(repo.Root(), "leak")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := repo.ListFolder(context.Background(), "leak")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNewFSRepository_BadReservedPattern(t *testing.T) {
	_, err := NewFSRepository(Options{Root: t.TempDir(), Reserved: []string{"[oops"}})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reserved"))
}
