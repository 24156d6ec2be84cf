// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	DefaultTTL      time.Duration
	MaxSize         int // memory backend only, 0 = unlimited
	CleanupInterval time.Duration
}

// New returns a Redis cache when cfg.RedisURL is set, and a memory cache
// otherwise.
func New(cfg Config) (Cache, error) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}
		rc, err := NewRedisCache(opts)
		if err != nil {
			return nil, err
		}
		slog.Info("using redis cache", "prefix", opts.Prefix)
		return rc, nil
	}

	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), nil
}

// Ping checks a cache backend that supports it. Memory caches always succeed.
func Ping(ctx context.Context, c Cache) error {
	if p, ok := c.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
