// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/olegiv/neongallery/internal/util"
)

// Background types.
const (
	BackgroundPreset = "preset"
	BackgroundCustom = "custom"
)

// Background is a selectable page background.
type Background struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Presets are rendered by the client and have no file behind them.
var Presets = []Background{
	{Name: "neon-grid", URL: "preset", Type: BackgroundPreset, DisplayName: "霓虹网格"},
	{Name: "cyber-matrix", URL: "preset", Type: BackgroundPreset, DisplayName: "赛博矩阵"},
	{Name: "starfield", URL: "preset", Type: BackgroundPreset, DisplayName: "星空"},
	{Name: "digital-rain", URL: "preset", Type: BackgroundPreset, DisplayName: "数字雨"},
	{Name: "faulty-terminal", URL: "preset", Type: BackgroundPreset, DisplayName: "故障终端"},
}

// IsPreset reports whether name is a preset background.
func IsPreset(name string) bool {
	return slices.ContainsFunc(Presets, func(b Background) bool { return b.Name == name })
}

// BackgroundURL returns the public URL of a custom background.
func BackgroundURL(name string) string {
	return "/backgrounds/" + url.PathEscape(name)
}

// Backgrounds stores custom backgrounds in a single directory.
type Backgrounds struct {
	dir     string
	maxSize int64
	now     func() time.Time
	mu      sync.Mutex
}

// NewBackgrounds creates dir if needed.
func NewBackgrounds(dir string, maxSize int64, now func() time.Time) (*Backgrounds, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving backgrounds dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating backgrounds dir: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	if maxSize <= 0 {
		maxSize = 15 << 20
	}
	return &Backgrounds{dir: abs, maxSize: maxSize, now: now}, nil
}

// Dir returns the absolute backgrounds directory.
func (b *Backgrounds) Dir() string {
	return b.dir
}

// List returns the presets and the custom backgrounds sorted by name.
func (b *Backgrounds) List(_ context.Context) (presets, custom []Background, err error) {
	presets = slices.Clone(Presets)

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading backgrounds dir: %w", err)
	}

	custom = make([]Background, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || util.IsHidden(e.Name()) || !IsImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		custom = append(custom, customBackground(info))
	}
	slices.SortFunc(custom, func(x, y Background) int { return compareNames(x.Name, y.Name) })
	return presets, custom, nil
}

// Put validates and stores one uploaded background.
func (b *Backgrounds) Put(ctx context.Context, u Upload) (Background, error) {
	p, err := prepareUpload(u, b.maxSize)
	if err != nil {
		return Background{}, err
	}
	if err := ctx.Err(); err != nil {
		return Background{}, err
	}

	tmp, err := stage(b.dir, p.Upload, b.maxSize)
	if err != nil {
		return Background{}, err
	}
	defer func() { _ = os.Remove(tmp) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	name, err := commit(b.dir, tmp, "background", p.ext, b.now())
	if err != nil {
		return Background{}, err
	}

	info, err := os.Lstat(filepath.Join(b.dir, name))
	if err != nil {
		return Background{}, fmt.Errorf("stat background: %w", err)
	}
	slog.Info("background uploaded", "name", name, "size", info.Size())
	return customBackground(info), nil
}

// Delete removes a custom background.
func (b *Backgrounds) Delete(_ context.Context, name string) error {
	if IsPreset(name) {
		return fmt.Errorf("background %q: %w", name, ErrPresetBackground)
	}
	if !util.IsBareName(name) || util.IsHidden(name) || !IsImageFile(name) {
		return fmt.Errorf("background %q: %w", name, ErrNotFound)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := util.SafeJoinPath(b.dir, name)
	if err != nil {
		return fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat background %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting background %q: %w", name, err)
	}
	return nil
}

// Open opens a custom background for reading.
func (b *Backgrounds) Open(_ context.Context, name string) (*os.File, os.FileInfo, error) {
	if !util.IsBareName(name) || util.IsHidden(name) || !IsImageFile(name) {
		return nil, nil, fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	path, err := util.SafeJoinPath(b.dir, name)
	if err != nil {
		return nil, nil, fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	if li, err := os.Lstat(path); err != nil || !li.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("background %q: %w", name, ErrNotFound)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat background %q: %w", name, err)
	}
	return f, info, nil
}

func customBackground(info os.FileInfo) Background {
	return Background{
		Name: info.Name(),
		URL:  BackgroundURL(info.Name()),
		Type: BackgroundCustom,
		Size: info.Size(),
	}
}
