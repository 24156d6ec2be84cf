// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/scheduler"
	"github.com/olegiv/neongallery/internal/store"
)

// JobRunner lists the scheduled maintenance jobs and runs them on demand.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"jobs": h.Jobs.List()})
}

// RunJob handles POST /api/jobs/{name}/run. The job runs synchronously.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}

	err := h.Jobs.TriggerNow(name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", "job.not_found")
		return
	}
	h.auditGallery(r, store.EventCategorySystem, "job triggered", map[string]any{
		"job":    name,
		"failed": err != nil,
	})
	if err != nil {
		slog.Error("manually triggered job failed", "job", name, "error", err)
		writeError(w, r, http.StatusInternalServerError, "job_failed", "job.failed")
		return
	}

	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "job.triggered"),
		"job":     name,
	})
}
