// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/neongallery/internal/i18n"
)

// Operation names a gated action.
type Operation string

// Gated operations. Everything else is public.
const (
	OpCreateTheme      Operation = "create_theme"
	OpDeleteTheme      Operation = "delete_theme"
	OpUploadImages     Operation = "upload_images"
	OpDeleteImage      Operation = "delete_image"
	OpUploadBackground Operation = "upload_background"
	OpDeleteBackground Operation = "delete_background"
	OpViewEvents       Operation = "view_events"
	OpManageJobs       Operation = "manage_jobs"
)

// Authorization errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// Authorizer decides whether a request may perform op.
type Authorizer interface {
	Authorize(op Operation, r *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(op Operation, r *http.Request) error

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(op Operation, r *http.Request) error {
	return f(op, r)
}

// SessionAuthorizer allows every gated operation to logged-in admins only.
// It relies on LoadUser having run earlier in the chain.
type SessionAuthorizer struct{}

// Authorize implements Authorizer.
func (SessionAuthorizer) Authorize(_ Operation, r *http.Request) error {
	user := GetUser(r)
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireOperation creates middleware that rejects requests authz does not
// allow for op: 401 without a user, 403 for non-admins.
func RequireOperation(authz Authorizer, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := authz.Authorize(op, r)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			lang := Lang(r)
			switch {
			case errors.Is(err, ErrUnauthenticated):
				WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", i18n.T(lang, "error.unauthenticated"))
			case errors.Is(err, ErrForbidden):
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"operation", string(op),
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", GetUserID(r),
					"remote_addr", r.RemoteAddr,
				)
				WriteAPIError(w, http.StatusForbidden, "forbidden", i18n.T(lang, "error.forbidden"))
			default:
				slog.Error("authorization failed", "error", err, "operation", string(op))
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "error.internal"))
			}
		})
	}
}
