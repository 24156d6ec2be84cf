// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/olegiv/neongallery/internal/util"
)

// ListThemes returns every theme sorted by name.
func (r *FSRepository) ListThemes(ctx context.Context) ([]Theme, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("reading gallery root: %w", err)
	}

	themes := make([]Theme, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if !e.IsDir() || util.IsHidden(name) || r.reserved.match(name) {
			continue
		}

		images, err := r.imageNames(filepath.Join(r.root, name))
		if errors.Is(err, os.ErrNotExist) {
			// deleted while listing
			continue
		}
		if err != nil {
			return nil, err
		}
		themes = append(themes, themeRecord(name, images))
	}

	slices.SortFunc(themes, func(a, b Theme) int {
		return compareNames(a.Name, b.Name)
	})
	return themes, nil
}

// CreateTheme sanitizes name and creates its directory.
func (r *FSRepository) CreateTheme(_ context.Context, name string) (Theme, error) {
	clean, err := SanitizeThemeName(name)
	if err != nil {
		return Theme{}, err
	}
	if r.reserved.match(clean) {
		return Theme{}, fmt.Errorf("%q is reserved: %w", clean, ErrInvalidName)
	}

	unlock := r.locks.Lock(clean)
	defer unlock()

	if err := r.mkTheme(clean); err != nil {
		return Theme{}, err
	}
	return themeRecord(clean, nil), nil
}

func (r *FSRepository) mkTheme(name string) error {
	dir, err := util.SafeJoinPath(r.root, name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("theme %q: %w", name, ErrExists)
		}
		return fmt.Errorf("creating theme %q: %w", name, err)
	}
	return nil
}

// DeleteTheme removes a theme directory and everything in it.
func (r *FSRepository) DeleteTheme(_ context.Context, name string) error {
	if err := r.checkThemeName(name); err != nil {
		return err
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	dir, err := r.themeDir(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting theme %q: %w", name, err)
	}
	return nil
}

// checkThemeName rejects names that cannot refer to a theme. It accepts
// exactly the directories ListThemes reports; sanitation applies only when
// a theme is created.
func (r *FSRepository) checkThemeName(name string) error {
	if !util.IsBareName(name) || util.IsHidden(name) || r.reserved.match(name) {
		return fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	return nil
}

// themeDir returns the directory of an existing theme.
func (r *FSRepository) themeDir(name string) (string, error) {
	dir, err := util.SafeJoinPath(r.root, name)
	if err != nil {
		return "", fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	info, err := os.Lstat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat theme %q: %w", name, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("theme %q: %w", name, ErrNotFound)
	}
	return dir, nil
}

// imageNames returns the sorted names of image files in dir.
func (r *FSRepository) imageNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(dir), err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !util.IsHidden(e.Name()) && IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, compareNames)
	return names, nil
}

func themeRecord(name string, images []string) Theme {
	cover := PlaceholderCover
	if len(images) > 0 {
		cover = ImageURL(name, images[0])
	}
	return Theme{
		Name:        name,
		DisplayName: name,
		Cover:       cover,
		ImageCount:  len(images),
	}
}

// compareNames is the one ordering used by every listing: byte-wise
// ascending on the file name.
func compareNames(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
