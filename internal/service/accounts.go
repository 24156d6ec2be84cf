// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds account logic shared by the HTTP handlers and
// the admin CLI.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/neongallery/internal/auth"
	"github.com/olegiv/neongallery/internal/store"
)

// ErrUserNotFound is returned when an account lookup fails.
var ErrUserNotFound = errors.New("user not found")

// maxUsernameLength bounds names taken from WeChat nicknames.
const maxUsernameLength = 32

// createAttempts bounds retries on username collisions.
const createAttempts = 5

var stripPolicy = bluemonday.StrictPolicy()

// Accounts finds or creates users on login.
type Accounts struct {
	queries *store.Queries
	admins  auth.AdminPhones
	now     func() time.Time
}

// NewAccounts creates Accounts on db. Phones in admins are promoted on login.
func NewAccounts(db store.DBTX, admins auth.AdminPhones) *Accounts {
	return &Accounts{
		queries: store.New(db),
		admins:  admins,
		now:     time.Now,
	}
}

// LoginByPhone returns the user for a verified E.164 phone, creating it on
// first login. created reports whether the account is new.
func (a *Accounts) LoginByPhone(ctx context.Context, phone string) (user store.User, created bool, err error) {
	user, err = a.queries.GetUserByPhone(ctx, phone)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		user, err = a.create(ctx, "user_", false, func(username string) store.CreateUserParams {
			return store.CreateUserParams{
				Username:      username,
				Phone:         sql.NullString{String: phone, Valid: true},
				PhoneVerified: true,
			}
		})
		if isUniqueViolation(err, "users.phone") {
			// Lost a race with a concurrent first login.
			user, err = a.queries.GetUserByPhone(ctx, phone)
		} else if err == nil {
			created = true
		}
		if err != nil {
			return store.User{}, false, fmt.Errorf("creating phone user: %w", err)
		}
	case err != nil:
		return store.User{}, false, fmt.Errorf("loading phone user: %w", err)
	}

	user, err = a.queries.RecordLogin(ctx, store.RecordLoginParams{
		ID:            user.ID,
		PhoneVerified: true,
		IsAdmin:       a.admins.Contains(phone),
		LoginAt:       a.now().UTC(),
	})
	if err != nil {
		return store.User{}, false, fmt.Errorf("recording login: %w", err)
	}
	return user, created, nil
}

// WeChatProfile is the optional profile sent with a WeChat login.
type WeChatProfile struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// LoginByWeChat returns the user bound to wechatID, creating it from the
// profile on first login.
func (a *Accounts) LoginByWeChat(ctx context.Context, wechatID string, profile WeChatProfile) (user store.User, created bool, err error) {
	user, err = a.queries.GetUserByWechatID(ctx, wechatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		nickname := SanitizeNickname(profile.Nickname)
		avatar := sanitizeAvatar(profile.Avatar)

		base, exact := "wechat_user_", false
		if nickname != "" {
			base, exact = nickname, true
		}
		user, err = a.create(ctx, base, exact, func(username string) store.CreateUserParams {
			return store.CreateUserParams{
				Username: username,
				WechatID: sql.NullString{String: wechatID, Valid: true},
				Avatar:   avatar,
			}
		})
		if isUniqueViolation(err, "users.wechat_id") {
			user, err = a.queries.GetUserByWechatID(ctx, wechatID)
		} else if err == nil {
			created = true
		}
		if err != nil {
			return store.User{}, false, fmt.Errorf("creating wechat user: %w", err)
		}
	case err != nil:
		return store.User{}, false, fmt.Errorf("loading wechat user: %w", err)
	}

	user, err = a.queries.RecordLogin(ctx, store.RecordLoginParams{
		ID:            user.ID,
		PhoneVerified: user.PhoneVerified,
		LoginAt:       a.now().UTC(),
	})
	if err != nil {
		return store.User{}, false, fmt.Errorf("recording login: %w", err)
	}
	return user, created, nil
}

// create inserts a user named base followed by 6 random digits. With exact
// set, base alone is tried first and later attempts add "_" and digits.
// Username collisions are retried with a new suffix.
func (a *Accounts) create(ctx context.Context, base string, exact bool, params func(username string) store.CreateUserParams) (store.User, error) {
	now := a.now().UTC()

	var lastErr error
	for attempt := range createAttempts {
		username := base
		if !exact || attempt > 0 {
			suffix, err := auth.GenerateCode()
			if err != nil {
				return store.User{}, err
			}
			if exact {
				username += "_"
			}
			username += suffix
		}

		p := params(username)
		p.CreatedAt = now
		p.UpdatedAt = now

		user, err := a.queries.CreateUser(ctx, p)
		if err == nil {
			return user, nil
		}
		if !isUniqueViolation(err, "users.username") {
			return store.User{}, err
		}
		lastErr = err
	}
	return store.User{}, fmt.Errorf("no free username after %d attempts: %w", createAttempts, lastErr)
}

// SetAdmin grants or revokes admin rights by user ID or username.
func (a *Accounts) SetAdmin(ctx context.Context, idOrName string, isAdmin bool) (store.User, error) {
	user, err := a.Find(ctx, idOrName)
	if err != nil {
		return store.User{}, err
	}
	if err := a.queries.SetUserAdmin(ctx, user.ID, isAdmin, a.now().UTC()); err != nil {
		return store.User{}, fmt.Errorf("updating user: %w", err)
	}
	user.IsAdmin = isAdmin
	return user, nil
}

// Find looks a user up by numeric ID, username or phone.
func (a *Accounts) Find(ctx context.Context, key string) (store.User, error) {
	key = strings.TrimSpace(key)

	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if user, err := a.queries.GetUserByID(ctx, id); err == nil {
			return user, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return store.User{}, err
		}
	}

	user, err := a.queries.GetUserByUsername(ctx, key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, err
	}

	if strings.HasPrefix(key, "+") {
		user, err = a.queries.GetUserByPhone(ctx, key)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return store.User{}, err
		}
	}
	return store.User{}, ErrUserNotFound
}

// SanitizeNickname strips markup and control characters from a nickname
// and bounds its length. The result may be empty.
func SanitizeNickname(nickname string) string {
	s := html.UnescapeString(stripPolicy.Sanitize(nickname))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`/\<>"'`, r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), "_")
	for utf8.RuneCountInString(s) > maxUsernameLength {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}

// sanitizeAvatar keeps only http(s) URLs.
func sanitizeAvatar(avatar string) string {
	avatar = strings.TrimSpace(avatar)
	if strings.HasPrefix(avatar, "https://") || strings.HasPrefix(avatar, "http://") {
		if !strings.ContainsAny(avatar, "\"'<> ") {
			return avatar
		}
	}
	return ""
}

// isUniqueViolation reports whether err is a SQLite UNIQUE failure on column.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
