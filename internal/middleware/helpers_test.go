// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/store"
)

func TestMain(m *testing.M) {
	_ = i18n.Init(nil, "en")
	m.Run()
}

// okHandler answers 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

type fakeUsers map[int64]store.User

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (store.User, error) {
	u, ok := f[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}
