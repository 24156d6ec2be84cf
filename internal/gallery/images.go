// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olegiv/neongallery/internal/util"
)

// ListImages returns the images of a theme sorted by file name.
func (r *FSRepository) ListImages(_ context.Context, theme string) ([]Image, error) {
	if err := r.checkThemeName(theme); err != nil {
		return nil, err
	}
	dir, err := r.themeDir(theme)
	if err != nil {
		return nil, err
	}

	names, err := r.imageNames(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("theme %q: %w", theme, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(names))
	for _, name := range names {
		info, err := os.Lstat(filepath.Join(dir, name))
		if err != nil {
			// removed after the directory read
			continue
		}
		images = append(images, newImage(theme, info))
	}
	return images, nil
}

// OpenImage opens a stored image for reading. The caller closes the file.
func (r *FSRepository) OpenImage(_ context.Context, theme, image string) (*os.File, os.FileInfo, error) {
	path, err := r.imagePath(theme, image)
	if err != nil {
		return nil, nil, err
	}

	if li, err := os.Lstat(path); err == nil && !li.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("image %q: %w", image, ErrNotFound)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening image %q: %w", image, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat image %q: %w", image, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	return f, info, nil
}

// DeleteImage removes one image from a theme.
func (r *FSRepository) DeleteImage(_ context.Context, theme, image string) error {
	if err := r.checkThemeName(theme); err != nil {
		return err
	}

	unlock := r.locks.Lock(theme)
	defer unlock()

	path, err := r.imagePath(theme, image)
	if err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat image %q: %w", image, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("image %q: %w", image, ErrNotFound)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("image %q: %w", image, ErrNotFound)
		}
		return fmt.Errorf("deleting image %q: %w", image, err)
	}
	return nil
}

// imagePath validates theme and image names and returns the image path.
// The image itself is not required to exist.
func (r *FSRepository) imagePath(theme, image string) (string, error) {
	if err := r.checkThemeName(theme); err != nil {
		return "", err
	}
	if !util.IsBareName(image) || util.IsHidden(image) || !IsImageFile(image) {
		return "", fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	dir, err := r.themeDir(theme)
	if err != nil {
		return "", err
	}
	path, err := util.SafeJoinPath(dir, image)
	if err != nil {
		return "", fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	return path, nil
}
