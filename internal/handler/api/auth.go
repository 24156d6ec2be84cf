// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/neongallery/internal/auth"
	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/logging"
	"github.com/olegiv/neongallery/internal/metrics"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/service"
	"github.com/olegiv/neongallery/internal/session"
	"github.com/olegiv/neongallery/internal/store"
	"github.com/olegiv/neongallery/internal/webhook"
)

// mockQRCodeURL is returned by the WeChat QR code endpoint until a real
// WeChat Open Platform app is configured.
const mockQRCodeURL = "https://example.com/mock-wechat-qr-code"

// Login methods.
const (
	methodPhone  = "phone"
	methodWeChat = "wechat"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phoneVerified"`
	Avatar        string `json:"avatar"`
	IsAdmin       bool   `json:"isAdmin"`
}

func userResponse(u store.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		PhoneVerified: u.PhoneVerified,
		Avatar:        u.Avatar,
		IsAdmin:       u.IsAdmin,
	}
	if u.Phone.Valid {
		resp.Phone = auth.MaskPhone(u.Phone.String)
	}
	return resp
}

// SendCodeRequest is the body of POST /api/auth/phone/send-code.
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// VerifyCodeRequest is the body of POST /api/auth/phone/verify.
type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// MockLoginRequest is the body of POST /api/auth/wechat/mock-login.
type MockLoginRequest struct {
	MockWechatID string                 `json:"mockWechatId"`
	MockUserInfo *service.WeChatProfile `json:"mockUserInfo"`
}

// SendCode handles POST /api/auth/phone/send-code.
func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		writeError(w, r, http.StatusBadRequest, "phone_required", "auth.phone_required")
		return
	}
	phone, err := auth.NormalizePhone(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_phone", "auth.invalid_phone")
		return
	}
	if locked, remaining := h.Protection.IsAccountLocked(phone); locked {
		writeError(w, r, http.StatusTooManyRequests, "account_locked", "auth.locked", minutesCeil(remaining))
		return
	}

	code, err := h.Codes.Issue(r.Context(), phone)
	if errors.Is(err, auth.ErrCooldown) {
		metrics.VerificationCodesTotal.WithLabelValues("cooldown").Inc()
		writeError(w, r, http.StatusTooManyRequests, "cooldown", "auth.cooldown")
		return
	}
	if err != nil {
		slog.Error("failed to issue verification code", "phone", auth.MaskPhone(phone), "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}

	if err := h.Sender.Send(r.Context(), phone, code); err != nil {
		slog.Error("failed to send verification code", "phone", auth.MaskPhone(phone), "error", err)
		if cerr := h.Codes.Cancel(r.Context(), phone); cerr != nil {
			slog.Warn("failed to cancel unsent code", "error", cerr)
		}
		metrics.VerificationCodesTotal.WithLabelValues("send_failed").Inc()
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}
	metrics.VerificationCodesTotal.WithLabelValues("sent").Inc()

	resp := map[string]any{
		"message":   i18n.T(middleware.Lang(r), "auth.code_sent"),
		"expiresIn": int(h.Codes.TTL().Seconds()),
	}
	if h.cfg.ExposeCodes {
		resp["code"] = code
	}
	writeSuccess(w, resp)
}

// VerifyCode handles POST /api/auth/phone/verify. Repeated wrong codes lock
// the phone and discard its pending code.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, r, http.StatusBadRequest, "fields_required", "auth.fields_required")
		return
	}
	phone, err := auth.NormalizePhone(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_phone", "auth.invalid_phone")
		return
	}
	if locked, remaining := h.Protection.IsAccountLocked(phone); locked {
		writeError(w, r, http.StatusTooManyRequests, "account_locked", "auth.locked", minutesCeil(remaining))
		return
	}

	err = h.Codes.Verify(r.Context(), phone, strings.TrimSpace(req.Code))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrNoPendingCode):
		writeError(w, r, http.StatusBadRequest, "no_code", "auth.no_code")
		return
	case errors.Is(err, auth.ErrCodeExpired):
		metrics.LoginsTotal.WithLabelValues(methodPhone, "expired").Inc()
		writeError(w, r, http.StatusBadRequest, "code_expired", "auth.code_expired")
		return
	case errors.Is(err, auth.ErrCodeMismatch):
		metrics.LoginsTotal.WithLabelValues(methodPhone, "failure").Inc()
		h.rejectCode(w, r, phone)
		return
	default:
		slog.Error("failed to verify code", "phone", auth.MaskPhone(phone), "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}

	h.Protection.RecordSuccessfulLogin(phone)

	user, created, err := h.Accounts.LoginByPhone(r.Context(), phone)
	if err != nil {
		slog.Error("phone login failed", "phone", auth.MaskPhone(phone), "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}
	if !h.startSession(w, r, user, methodPhone, created) {
		return
	}

	writeSuccess(w, map[string]any{
		"message":   i18n.T(middleware.Lang(r), "auth.login_success"),
		"user":      userResponse(user),
		"isNewUser": created,
	})
}

func (h *Handler) rejectCode(w http.ResponseWriter, r *http.Request, phone string) {
	locked, lockout := h.Protection.RecordFailedAttempt(phone)
	if locked {
		if err := h.Codes.Discard(r.Context(), phone); err != nil {
			slog.Warn("failed to discard code of locked phone", "error", err)
		}
		slog.Warn("phone locked after failed verification attempts",
			"phone", auth.MaskPhone(phone),
			"ip", middleware.ClientIP(r),
			"lockout", lockout,
			"category", store.EventCategoryAuth,
		)
		writeError(w, r, http.StatusTooManyRequests, "account_locked", "auth.locked", minutesCeil(lockout))
		return
	}

	writeError(w, r, http.StatusBadRequest, "code_invalid", "auth.code_invalid")
}

// WeChatQRCode handles GET /api/auth/wechat/qrcode.
func (h *Handler) WeChatQRCode(w http.ResponseWriter, r *http.Request) {
	state := "wechat_auth_" + uuid.NewString()
	writeSuccess(w, map[string]any{
		"message":   i18n.T(middleware.Lang(r), "auth.qrcode_ready"),
		"qrCodeUrl": mockQRCodeURL + "?state=" + url.QueryEscape(state),
		"state":     state,
	})
}

// WeChatCallback handles GET /api/auth/wechat/callback.
func (h *Handler) WeChatCallback(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login?wechatAuth=success", http.StatusFound)
}

// WeChatMockLogin handles POST /api/auth/wechat/mock-login. It is only
// served when mock WeChat login is enabled.
func (h *Handler) WeChatMockLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.WeChatMock {
		writeError(w, r, http.StatusNotFound, "wechat_disabled", "auth.wechat_disabled")
		return
	}

	var req MockLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	wechatID := strings.TrimSpace(req.MockWechatID)
	if wechatID == "" {
		writeError(w, r, http.StatusBadRequest, "wechat_id_required", "auth.wechat_id_required")
		return
	}
	var profile service.WeChatProfile
	if req.MockUserInfo != nil {
		profile = *req.MockUserInfo
	}

	user, created, err := h.Accounts.LoginByWeChat(r.Context(), wechatID, profile)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(methodWeChat, "error").Inc()
		slog.Error("wechat login failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}
	if !h.startSession(w, r, user, methodWeChat, created) {
		return
	}

	writeSuccess(w, map[string]any{
		"message":   i18n.T(middleware.Lang(r), "auth.login_success"),
		"user":      userResponse(user),
		"isNewUser": created,
	})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loggedIn": true,
		"user":     userResponse(*user),
	})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if err := h.Sessions.Destroy(r.Context()); err != nil {
		slog.Error("failed to destroy session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return
	}
	if userID != 0 {
		slog.Info("user logged out", "user_id", userID)
	}
	writeSuccess(w, map[string]any{
		"message": i18n.T(middleware.Lang(r), "auth.logout_success"),
	})
}

// startSession renews the session token and binds it to user.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user store.User, method string, created bool) bool {
	if err := h.Sessions.RenewToken(r.Context()); err != nil {
		slog.Error("failed to renew session token", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "error.internal")
		return false
	}
	h.Sessions.Put(r.Context(), session.KeyUserID, user.ID)

	metrics.LoginsTotal.WithLabelValues(method, "success").Inc()
	slog.Info("user logged in", "user_id", user.ID, "method", method, "created", created)
	if created {
		h.notify(r, webhook.EventUserCreated, webhook.UserEventData{ID: user.ID, Username: user.Username, Method: method})
	}

	if h.Auditor != nil {
		err := h.Auditor.LogLogin(r.Context(), logging.LoginInfo{
			UserID:    user.ID,
			Method:    method,
			Created:   created,
			IP:        middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			slog.Error("failed to write login event", "user_id", user.ID, "error", err)
		}
	}
	return true
}

func minutesCeil(d time.Duration) int {
	return max(1, int(math.Ceil(d.Minutes())))
}
