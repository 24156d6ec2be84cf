// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Maintenance job names.
const (
	JobCacheSweep     = "cache-sweep"
	JobLimiterSweep   = "limiter-sweep"
	JobEventRetention = "event-retention"
	JobStagingCleanup = "staging-cleanup"
	JobGeoIPReload    = "geoip-reload"
)

// StagingMaxAge is how old a staged upload must be before it is removed.
const StagingMaxAge = time.Hour

// ExpiringCache drops expired entries on demand. Redis expires keys itself
// and does not implement it.
type ExpiringCache interface {
	RemoveExpired() int
}

// Sweeper drops idle rate limiter state.
type Sweeper interface {
	Sweep()
}

// StaleCleaner drops stale login failure records.
type StaleCleaner interface {
	CleanupStaleEntries() int
}

// EventPruner deletes event log entries older than a cutoff.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// StagingPurger removes abandoned upload files.
type StagingPurger interface {
	PurgeStaging(maxAge time.Duration) (int, error)
}

// Reloader reopens a file-backed resource when it changed.
type Reloader interface {
	Reload() error
}

// Maintenance collects the components swept by the maintenance jobs. Nil
// fields skip their job.
type Maintenance struct {
	Cache      ExpiringCache
	Limiters   []Sweeper
	Protection StaleCleaner
	Events     EventPruner
	Retention  time.Duration
	Staging    StagingPurger
	GeoIP      Reloader
	Now        func() time.Time
	Logger     *slog.Logger
}

// Jobs returns the maintenance jobs that have something to sweep.
func (m Maintenance) Jobs() []Job {
	if m.Now == nil {
		m.Now = time.Now
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}

	var jobs []Job
	if m.Cache != nil {
		jobs = append(jobs, Job{
			Name:        JobCacheSweep,
			Description: "Remove expired verification codes and thumbnails from the memory cache",
			Schedule:    "@every 5m",
			Run:         m.sweepCache,
		})
	}
	if len(m.Limiters) > 0 || m.Protection != nil {
		jobs = append(jobs, Job{
			Name:        JobLimiterSweep,
			Description: "Drop idle rate limiters and stale login failure records",
			Schedule:    "@every 10m",
			Run:         m.sweepLimiters,
		})
	}
	if m.Events != nil && m.Retention > 0 {
		jobs = append(jobs, Job{
			Name:        JobEventRetention,
			Description: "Delete event log entries past the retention period",
			Schedule:    "0 3 * * *",
			Run:         m.pruneEvents,
		})
	}
	if m.Staging != nil {
		jobs = append(jobs, Job{
			Name:        JobStagingCleanup,
			Description: "Remove uploads abandoned in the staging directory",
			Schedule:    "@hourly",
			Run:         m.purgeStaging,
		})
	}
	if m.GeoIP != nil {
		jobs = append(jobs, Job{
			Name:        JobGeoIPReload,
			Description: "Reopen the GeoIP database after it was updated",
			Schedule:    "@daily",
			Run:         func(context.Context) error { return m.GeoIP.Reload() },
		})
	}
	return jobs
}

// Register adds the maintenance jobs to s.
func (m Maintenance) Register(s *Scheduler) error {
	for _, job := range m.Jobs() {
		if err := s.Add(job); err != nil {
			return err
		}
	}
	return nil
}

func (m Maintenance) sweepCache(context.Context) error {
	if n := m.Cache.RemoveExpired(); n > 0 {
		m.Logger.Debug("removed expired cache entries", "count", n)
	}
	return nil
}

func (m Maintenance) sweepLimiters(context.Context) error {
	for _, l := range m.Limiters {
		l.Sweep()
	}
	if m.Protection != nil {
		if n := m.Protection.CleanupStaleEntries(); n > 0 {
			m.Logger.Debug("removed stale login protection entries", "count", n)
		}
	}
	return nil
}

func (m Maintenance) pruneEvents(ctx context.Context) error {
	cutoff := m.Now().Add(-m.Retention)
	n, err := m.Events.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("deleting old events: %w", err)
	}
	if n > 0 {
		m.Logger.Info("deleted old events", "count", n, "before", cutoff)
	}
	return nil
}

func (m Maintenance) purgeStaging(context.Context) error {
	n, err := m.Staging.PurgeStaging(StagingMaxAge)
	if err != nil {
		return err
	}
	if n > 0 {
		m.Logger.Info("removed abandoned uploads", "count", n)
	}
	return nil
}
