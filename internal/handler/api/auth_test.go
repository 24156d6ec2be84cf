// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/neongallery/internal/store"
)

type meResponse struct {
	LoggedIn bool          `json:"loggedIn"`
	User     *UserResponse `json:"user"`
}

func TestSendCode(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	resp := env.do(c, http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": ""}), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "phone_required", decodeError(t, resp).Code)

	resp = env.do(c, http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": "12345"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_phone", decodeError(t, resp).Code)

	resp = env.do(c, http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": "13900139000"}), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	var sent struct {
		Success   bool   `json:"success"`
		Code      string `json:"code"`
		ExpiresIn int    `json:"expiresIn"`
	}
	decodeInto(t, resp, &sent)
	assert.True(t, sent.Success)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), sent.Code)
	assert.Equal(t, sent.Code, env.sender.last(userPhone), "local numbers are normalised to E.164")
	assert.Equal(t, 600, sent.ExpiresIn)

	resp = env.do(c, http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "cooldown", decodeError(t, resp).Code)
}

func TestSendCode_HidesCode(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *Config) { c.ExposeCodes = false }))

	resp := env.do(env.client(), http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, resp.Body, `"code"`)
	assert.NotEmpty(t, env.sender.last(userPhone))
}

func TestSendCode_SenderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("sms gateway down")

	resp := env.do(env.client(), http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", decodeError(t, resp).Code)

	// A failed send does not hold the phone in cooldown.
	env.sender.mu.Lock()
	env.sender.err = nil
	env.sender.mu.Unlock()
	resp = env.do(env.client(), http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.NotEmpty(t, env.sender.last(userPhone))
}

func TestVerifyCode_Errors(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	resp := env.do(c, http.MethodPost, "/api/auth/phone/verify", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "fields_required", decodeError(t, resp).Code)

	resp = env.do(c, http.MethodPost, "/api/auth/phone/verify", jsonBody(map[string]string{"phone": userPhone, "code": "123456"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no_code", decodeError(t, resp).Code)
}

func TestVerifyCode_Lockout(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	resp := env.do(c, http.MethodPost, "/api/auth/phone/send-code", jsonBody(map[string]string{"phone": userPhone}), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	good := env.sender.last(userPhone)
	bad := "000000"
	if good == bad {
		bad = "111111"
	}

	for i := 1; i < 5; i++ {
		resp = env.do(c, http.MethodPost, "/api/auth/phone/verify", jsonBody(map[string]string{"phone": userPhone, "code": bad}), "application/json")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "attempt %d", i)
		assert.Equal(t, "code_invalid", decodeError(t, resp).Code)
	}

	resp = env.do(c, http.MethodPost, "/api/auth/phone/verify", jsonBody(map[string]string{"phone": userPhone, "code": bad}), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "account_locked", decodeError(t, resp).Code)

	// The correct code no longer works while locked.
	resp = env.do(c, http.MethodPost, "/api/auth/phone/verify", jsonBody(map[string]string{"phone": userPhone, "code": good}), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var me meResponse
	env.getJSON(c, "/api/auth/me", &me)
	assert.False(t, me.LoggedIn)
}

func TestPhoneLoginSession(t *testing.T) {
	env := newTestEnv(t)

	anonymous := env.client()
	var me meResponse
	env.getJSON(anonymous, "/api/auth/me", &me)
	assert.False(t, me.LoggedIn)
	assert.Nil(t, me.User)

	admin := env.login(adminPhone)
	env.getJSON(admin, "/api/auth/me", &me)
	require.True(t, me.LoggedIn)
	require.NotNil(t, me.User)
	assert.True(t, me.User.IsAdmin)
	assert.True(t, me.User.PhoneVerified)
	assert.Regexp(t, regexp.MustCompile(`^user_\d{6}$`), me.User.Username)
	assert.Equal(t, "+86138****8000", me.User.Phone)

	user := env.login(userPhone)
	me = meResponse{}
	env.getJSON(user, "/api/auth/me", &me)
	require.NotNil(t, me.User)
	assert.False(t, me.User.IsAdmin)

	resp := env.do(admin, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me = meResponse{}
	env.getJSON(admin, "/api/auth/me", &me)
	assert.False(t, me.LoggedIn)
}

func TestLoginIsAudited(t *testing.T) {
	env := newTestEnv(t)
	env.login(userPhone)

	events, err := store.New(env.db).ListEvents(t.Context(), store.ListEventsParams{
		Category: store.EventCategoryAuth,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "user registered", events[0].Message)
	assert.True(t, events[0].UserID.Valid)
	assert.Contains(t, events[0].Metadata, `"method":"phone"`)
}

func TestWeChat(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	var qr struct {
		Success   bool   `json:"success"`
		QRCodeURL string `json:"qrCodeUrl"`
		State     string `json:"state"`
	}
	resp := env.getJSON(c, "/api/auth/wechat/qrcode", &qr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(qr.State, "wechat_auth_"))
	assert.Contains(t, qr.QRCodeURL, qr.State)

	resp = env.do(c, http.MethodGet, "/api/auth/wechat/callback", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?wechatAuth=success", resp.Header.Get("Location"))

	resp = env.do(c, http.MethodPost, "/api/auth/wechat/mock-login", jsonBody(map[string]any{}), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "wechat_id_required", decodeError(t, resp).Code)

	resp = env.do(c, http.MethodPost, "/api/auth/wechat/mock-login", jsonBody(map[string]any{
		"mockWechatId": "wx-1",
		"mockUserInfo": map[string]string{"nickname": "Neon <i>Cat</i>", "avatar": "https://example.com/cat.png"},
	}), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var me meResponse
	env.getJSON(c, "/api/auth/me", &me)
	require.True(t, me.LoggedIn)
	assert.Equal(t, "Neon_Cat", me.User.Username)
	assert.Equal(t, "https://example.com/cat.png", me.User.Avatar)
	assert.False(t, me.User.IsAdmin)
}

func TestWeChatMockDisabled(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *Config) { c.WeChatMock = false }))

	resp := env.do(env.client(), http.MethodPost, "/api/auth/wechat/mock-login",
		jsonBody(map[string]any{"mockWechatId": "wx-1"}), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "wechat_disabled", decodeError(t, resp).Code)
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(adminPhone)
	resp := env.do(admin, http.MethodPost, "/api/themes", jsonBody(map[string]string{"name": "Audited"}), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Events []EventResponse `json:"events"`
		Meta   Meta            `json:"meta"`
	}
	resp = env.getJSON(admin, "/api/events?category=gallery", &page)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "theme created", page.Events[0].Message)
	require.NotNil(t, page.Events[0].UserID)
	assert.EqualValues(t, 1, page.Meta.Total)
	assert.Equal(t, 1, page.Meta.Pages)

	resp = env.getJSON(admin, "/api/events?per_page=1&page=2", &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, page.Meta.Total, "login and theme events")
	assert.Equal(t, 2, page.Meta.Page)
	assert.Len(t, page.Events, 1)
}
