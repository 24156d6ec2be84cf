// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olegiv/neongallery/internal/util"
)

// Folder is the result of a folder listing.
type Folder struct {
	Folder string   `json:"folder"`
	Count  int      `json:"count"`
	Files  []string `json:"files"`
}

// ListFolder lists the image files directly inside folder, a slash
// separated path relative to the gallery root. Symlinks are resolved
// before the containment check.
func (r *FSRepository) ListFolder(_ context.Context, folder string) (Folder, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return Folder{}, fmt.Errorf("folder is required: %w", ErrInvalidName)
	}
	if strings.ContainsRune(folder, 0) || util.ContainsPathTraversal(folder) {
		return Folder{}, fmt.Errorf("folder %q: %w", folder, ErrInvalidPath)
	}

	first, _, _ := strings.Cut(folder, "/")
	if util.IsHidden(first) || r.reserved.match(first) {
		return Folder{}, fmt.Errorf("folder %q: %w", folder, ErrInvalidPath)
	}

	dir, err := util.ResolveWithinBase(r.root, folder)
	switch {
	case errors.Is(err, util.ErrPathEscapes):
		return Folder{}, fmt.Errorf("folder %q: %w", folder, ErrInvalidPath)
	case errors.Is(err, os.ErrNotExist):
		return Folder{}, fmt.Errorf("folder %q: %w", folder, ErrNotFound)
	case err != nil:
		return Folder{}, err
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Folder{}, fmt.Errorf("folder %q: %w", folder, ErrNotFound)
	}

	files, err := r.imageNames(dir)
	if err != nil {
		return Folder{}, err
	}
	return Folder{Folder: folder, Count: len(files), Files: files}, nil
}
