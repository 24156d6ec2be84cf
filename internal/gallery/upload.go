// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olegiv/neongallery/internal/imaging"
	"github.com/olegiv/neongallery/internal/util"
)

// stagingDir holds uploads until they are renamed into their theme.
const stagingDir = ".staging"

// maxNameAttempts bounds the timestamp bump when picking a free file name.
const maxNameAttempts = 1000

type preparedUpload struct {
	Upload
	base string
	ext  string
}

// prepareUploads validates a whole batch before anything is written.
func prepareUploads(files []Upload, maxFiles int, maxSize int64) ([]preparedUpload, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > maxFiles {
		return nil, fmt.Errorf("%d files, limit %d: %w", len(files), maxFiles, ErrTooManyFiles)
	}

	prepared := make([]preparedUpload, 0, len(files))
	for _, f := range files {
		p, err := prepareUpload(f, maxSize)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}
	return prepared, nil
}

func prepareUpload(u Upload, maxSize int64) (preparedUpload, error) {
	fail := func(err error) (preparedUpload, error) {
		return preparedUpload{}, &FileError{File: u.Filename, Err: err}
	}

	name, err := util.BaseName(u.Filename)
	if err != nil {
		return fail(ErrUnsupportedType)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExtensions[ext] {
		return fail(ErrUnsupportedType)
	}
	if u.Size > maxSize {
		return fail(ErrTooLarge)
	}

	declared, _, _ := mime.ParseMediaType(u.ContentType)
	if declared == "" || declared == "application/octet-stream" {
		declared = imaging.MimeTypeFromExtension(name)
	}
	if !imaging.IsImageMimeType(declared) {
		return fail(ErrUnsupportedType)
	}

	sniffed, err := sniff(u)
	if err != nil {
		return preparedUpload{}, fmt.Errorf("reading %q: %w", u.Filename, err)
	}
	if !imaging.IsImageMimeType(sniffed) {
		return fail(ErrUnsupportedType)
	}

	return preparedUpload{Upload: u, base: uploadBaseName(name), ext: ext}, nil
}

func sniff(u Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	head := make([]byte, imaging.SniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return imaging.DetectMimeType(head[:n]), nil
}

// stage copies an upload into a hidden temp file in dir.
func stage(dir string, u Upload, maxSize int64) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", u.Filename, err)
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(rc, maxSize+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > maxSize {
		err = &FileError{File: u.Filename, Err: ErrTooLarge}
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing %q: %w", u.Filename, err)
	}
	return tmp.Name(), nil
}

// commit renames a staged file to <base>_<unix-millis><ext> in dir,
// bumping the timestamp until the name is free. Callers hold the lock
// guarding dir.
func commit(dir, tmp, base, ext string, now time.Time) (string, error) {
	ms := now.UnixMilli()
	for i := int64(0); i < maxNameAttempts; i++ {
		name := fmt.Sprintf("%s_%d%s", base, ms+i, ext)
		target := filepath.Join(dir, name)
		if _, err := os.Lstat(target); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.Rename(tmp, target); err != nil {
			return "", fmt.Errorf("storing %s: %w", name, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("no free file name for %q", base)
}

// PutImages stores a batch of uploads in a theme. Either every file is
// stored or none is.
func (r *FSRepository) PutImages(ctx context.Context, theme string, files []Upload) ([]UploadedImage, error) {
	if err := r.checkThemeName(theme); err != nil {
		if r.createMissing {
			return nil, fmt.Errorf("theme %q: %w", theme, ErrInvalidName)
		}
		return nil, err
	}

	prepared, err := prepareUploads(files, r.maxFiles, r.maxSize)
	if err != nil {
		return nil, err
	}

	staging := filepath.Join(r.root, stagingDir)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}

	staged := make([]string, 0, len(prepared))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}()
	for _, p := range prepared {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tmp, err := stage(staging, p.Upload, r.maxSize)
		if err != nil {
			return nil, err
		}
		staged = append(staged, tmp)
	}

	unlock := r.locks.Lock(theme)
	defer unlock()

	dir, created, err := r.ensureThemeDir(theme)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(prepared))
	rollback := func() {
		for _, name := range names {
			_ = os.Remove(filepath.Join(dir, name))
		}
		if created {
			_ = os.Remove(dir)
		}
	}

	now := r.now()
	for i, p := range prepared {
		name, err := commit(dir, staged[i], p.base, p.ext, now)
		if err != nil {
			rollback()
			return nil, err
		}
		staged[i] = ""
		names = append(names, name)
	}

	uploaded := make([]UploadedImage, 0, len(names))
	for _, name := range names {
		img, err := describeUpload(theme, filepath.Join(dir, name))
		if err != nil {
			rollback()
			return nil, err
		}
		uploaded = append(uploaded, img)
	}

	slog.Info("images uploaded", "theme", theme, "count", len(uploaded), "created_theme", created)
	return uploaded, nil
}

// ensureThemeDir returns the theme directory, creating it when allowed.
func (r *FSRepository) ensureThemeDir(theme string) (dir string, created bool, err error) {
	dir, err = r.themeDir(theme)
	if err == nil {
		return dir, false, nil
	}
	if !errors.Is(err, ErrNotFound) || !r.createMissing {
		return "", false, err
	}
	if clean, serr := SanitizeThemeName(theme); serr != nil || clean != theme {
		return "", false, fmt.Errorf("theme %q: %w", theme, ErrInvalidName)
	}
	if err := r.mkTheme(theme); err != nil {
		return "", false, err
	}
	dir, err = r.themeDir(theme)
	return dir, err == nil, err
}

func describeUpload(theme, path string) (UploadedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("opening stored image: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return UploadedImage{}, fmt.Errorf("stat stored image: %w", err)
	}

	img := UploadedImage{Image: newImage(theme, info)}
	if w, h, err := imaging.Dimensions(f); err == nil {
		img.Width, img.Height = w, h
	}
	return img, nil
}

// PurgeStaging removes staged uploads older than maxAge. Files only stay
// behind when the process died mid-upload.
func (r *FSRepository) PurgeStaging(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, stagingDir))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading staging dir: %w", err)
	}

	cutoff := r.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.root, stagingDir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing staged file: %w", err)
		}
		removed++
	}
	return removed, nil
}
