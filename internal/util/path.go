// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscapes is returned when a path resolves outside its base directory.
var ErrPathEscapes = errors.New("path traversal detected: path escapes base directory")

// BaseName extracts only the base filename, removing any directory
// components. "../../../etc/passwd" becomes "passwd". Returns an error
// if nothing usable is left.
func BaseName(filename string) (string, error) {
	safe := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, "\\", "/")))
	if safe == "." || safe == ".." || safe == "" || safe == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}

// IsBareName reports whether name can be used as a single path segment
// as-is: no separators, not "." or "..", not empty.
func IsBareName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// IsHidden reports whether a directory entry name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ValidatePathWithinBase ensures that targetPath, after cleaning, is basePath
// itself or lies below it.
func ValidatePathWithinBase(basePath, targetPath string) error {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}

	absTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("invalid target path: %w", err)
	}

	if !within(absBase, absTarget) {
		return ErrPathEscapes
	}
	return nil
}

// SafeJoinPath joins path components onto basePath and fails if the result
// would leave it.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, components...)...)
	if err := ValidatePathWithinBase(basePath, fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// ResolveWithinBase joins rel onto basePath, resolves symlinks on both and
// checks the real target is still inside the real base. The target must
// exist; os.ErrNotExist is returned (wrapped) when it does not.
func ResolveWithinBase(basePath, rel string) (string, error) {
	realBase, err := filepath.EvalSymlinks(basePath)
	if err != nil {
		return "", fmt.Errorf("resolving base: %w", err)
	}
	realBase, err = filepath.Abs(realBase)
	if err != nil {
		return "", fmt.Errorf("resolving base: %w", err)
	}

	joined := filepath.Join(realBase, filepath.FromSlash(rel))
	if !within(realBase, joined) {
		return "", ErrPathEscapes
	}

	realTarget, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolving %q: %w", rel, os.ErrNotExist)
		}
		return "", fmt.Errorf("resolving %q: %w", rel, err)
	}
	if !within(realBase, realTarget) {
		return "", ErrPathEscapes
	}
	return realTarget, nil
}

// ContainsPathTraversal checks if a path contains ".." segments after cleaning.
func ContainsPathTraversal(path string) bool {
	cleaned := filepath.Clean(path)
	return strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, string(filepath.Separator)+"..")
}

// within compares with a trailing separator so /data-other is not inside /data.
func within(base, target string) bool {
	return target == base || strings.HasPrefix(target, base+string(filepath.Separator))
}
