// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"

	"github.com/olegiv/neongallery/internal/util"
)

// MaxNameLength is the longest theme name accepted, in runes.
const MaxNameLength = 100

// imageExtensions is the one set of extensions treated as images for
// listing, counting, cover selection and uploads.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IsImageFile reports whether name has a recognised image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// illegalChars are stripped from theme names.
const illegalChars = `<>:"/\|?*`

// SanitizeThemeName turns user input into a directory name. It returns
// ErrInvalidName when nothing usable is left; it never substitutes a default.
func SanitizeThemeName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || util.IsHidden(name) {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("name longer than %d characters: %w", MaxNameLength, ErrInvalidName)
	}
	return name, nil
}

// uploadBaseName derives the stem of a stored upload from the client's
// filename. Extension and directories are dropped.
func uploadBaseName(filename string) string {
	base, err := util.BaseName(filename)
	if err != nil {
		return "image"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = norm.NFC.String(base)

	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
		"*", "",
		"|", "",
		":", "",
	)
	base = replacer.Replace(base)
	base = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, base)
	base = strings.TrimLeft(base, ".")

	if base == "" {
		return "image"
	}
	if utf8.RuneCountInString(base) > MaxNameLength {
		base = string([]rune(base)[:MaxNameLength])
	}
	return base
}

// reservedNames matches directory names that are never themes.
type reservedNames struct {
	patterns []glob.Glob
}

func compileReserved(patterns []string) (*reservedNames, error) {
	r := &reservedNames{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling reserved pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, g)
	}
	return r, nil
}

func (r *reservedNames) match(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range r.patterns {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
