// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	counter := HTTPRequestsTotal.WithLabelValues("GET", "/api/themes", "200")
	before := testutil.ToFloat64(counter)

	ObserveRequest("GET", "/api/themes", 200, 15*time.Millisecond)
	ObserveRequest("GET", "/api/themes", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("request counter delta = %v, want 2", got)
	}
}

func TestObserveUpload(t *testing.T) {
	files := UploadedFilesTotal.WithLabelValues(KindImage)
	bytes := UploadedBytesTotal.WithLabelValues(KindImage)
	beforeFiles, beforeBytes := testutil.ToFloat64(files), testutil.ToFloat64(bytes)

	ObserveUpload(KindImage, 3, 4096)

	if got := testutil.ToFloat64(files) - beforeFiles; got != 3 {
		t.Errorf("files delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(bytes) - beforeBytes; got != 4096 {
		t.Errorf("bytes delta = %v, want 4096", got)
	}
}

func TestHandler(t *testing.T) {
	ObserveRequest("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "gallery_http_requests_total") {
		t.Error("metrics output missing gallery_http_requests_total")
	}
}
