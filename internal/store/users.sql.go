// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, username, phone, phone_verified, wechat_id, avatar, is_admin, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Phone,
		&u.PhoneVerified,
		&u.WechatID,
		&u.Avatar,
		&u.IsAdmin,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `INSERT INTO users (username, phone, phone_verified, wechat_id, avatar, is_admin, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

// CreateUserParams holds the columns set on insert.
type CreateUserParams struct {
	Username      string
	Phone         sql.NullString
	PhoneVerified bool
	WechatID      sql.NullString
	Avatar        string
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Phone,
		arg.PhoneVerified,
		arg.WechatID,
		arg.Avatar,
		arg.IsAdmin,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByPhone = `SELECT ` + userColumns + ` FROM users WHERE phone = ?`

func (q *Queries) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByPhone, phone))
}

const getUserByWechatID = `SELECT ` + userColumns + ` FROM users WHERE wechat_id = ?`

func (q *Queries) GetUserByWechatID(ctx context.Context, wechatID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByWechatID, wechatID))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const recordLogin = `UPDATE users
SET last_login_at = ?, phone_verified = phone_verified OR ?, is_admin = is_admin OR ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

// RecordLoginParams marks a successful login. PhoneVerified and IsAdmin
// can only be raised here, never cleared.
type RecordLoginParams struct {
	ID            int64
	PhoneVerified bool
	IsAdmin       bool
	LoginAt       time.Time
}

func (q *Queries) RecordLogin(ctx context.Context, arg RecordLoginParams) (User, error) {
	row := q.db.QueryRowContext(ctx, recordLogin,
		arg.LoginAt,
		arg.PhoneVerified,
		arg.IsAdmin,
		arg.LoginAt,
		arg.ID,
	)
	return scanUser(row)
}

const updateUserProfile = `UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserAvatar(ctx context.Context, id int64, avatar string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, updateUserProfile, avatar, updatedAt, id)
	return err
}

const setUserAdmin = `UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetUserAdmin(ctx context.Context, id int64, isAdmin bool, updatedAt time.Time) error {
	res, err := q.db.ExecContext(ctx, setUserAdmin, isAdmin, updatedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT ? OFFSET ?`

// ListUsersParams pages through users.
type ListUsersParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}
