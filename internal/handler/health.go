// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/olegiv/neongallery/internal/cache"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/scheduler"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	checkTimeout = 2 * time.Second
	minDiskSpace = 100 * 1024 * 1024
)

// JobLister reports the scheduled jobs.
type JobLister interface {
	List() []scheduler.JobInfo
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db          *sql.DB
	cache       cache.Cache
	jobs        JobLister
	galleryRoot string
	version     string
	startTime   time.Time
}

// NewHealthHandler creates a new health handler. c may be nil.
func NewHealthHandler(db *sql.DB, c cache.Cache, galleryRoot, version string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		cache:       c,
		galleryRoot: galleryRoot,
		version:     version,
		startTime:   time.Now(),
	}
}

// SetJobs makes the scheduled jobs part of the administrator view.
func (h *HealthHandler) SetJobs(jobs JobLister) {
	h.jobs = jobs
}

// HealthStatusPublic is the minimal health response for anonymous callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the health response for logged-in callers. Checks and
// System are filled for administrators only.
type HealthStatus struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Uptime    string              `json:"uptime"`
	Version   string              `json:"version"`
	Checks    map[string]Check    `json:"checks,omitempty"`
	Cache     *cache.Stats        `json:"cache,omitempty"`
	Jobs      []scheduler.JobInfo `json:"jobs,omitempty"`
	System    *SystemInfo         `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
		"gallery":  h.checkDiskSpace(),
		"cache":    h.checkCache(r.Context()),
	}

	overall := statusHealthy
	for _, c := range checks {
		if c.Status != statusHealthy {
			overall = statusDegraded
			break
		}
	}
	code := http.StatusOK
	if overall != statusHealthy {
		code = http.StatusServiceUnavailable
	}

	user := middleware.GetUser(r)
	if user == nil {
		writeJSON(w, code, HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
	}
	if user.IsAdmin {
		status.Checks = checks
		if sp, ok := h.cache.(cache.StatsProvider); ok {
			stats := sp.Stats()
			status.Cache = &stats
		}
		if h.jobs != nil {
			status.Jobs = h.jobs.List()
		}
		if r.URL.Query().Get("verbose") == "true" {
			status.System = systemInfo()
		}
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The service is ready once the
// database answers and the gallery root is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	rootErr := h.checkRoot()

	if dbCheck.Status == statusHealthy && rootErr == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	resp := map[string]string{"status": "not_ready"}
	if user := middleware.GetUser(r); user != nil && user.IsAdmin {
		if rootErr != nil {
			resp["message"] = rootErr.Error()
		} else {
			resp["message"] = dbCheck.Message
		}
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	if h.cache == nil {
		return Check{Status: statusHealthy, Message: "Disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := cache.Ping(ctx, h.cache)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkRoot() error {
	info, err := os.Stat(h.galleryRoot)
	if err != nil {
		return fmt.Errorf("gallery root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("gallery root %s is not a directory", h.galleryRoot)
	}
	return nil
}

// checkDiskSpace reports free space on the gallery volume.
func (h *HealthHandler) checkDiskSpace() Check {
	if err := h.checkRoot(); err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error()}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.galleryRoot, &stat); err != nil {
		return Check{Status: statusUnhealthy, Message: "Failed to check disk space: " + err.Error()}
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	available := formatBytes(availableBytes)
	if availableBytes < minDiskSpace {
		return Check{Status: statusDegraded, Message: "Low disk space: " + available + " available"}
	}
	return Check{Status: statusHealthy, Message: available + " available"}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
