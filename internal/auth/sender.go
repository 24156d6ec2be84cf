// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"
)

// Sender delivers a verification code to a phone.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of sending them. The code
// itself is only logged at debug level.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, phone, code string) error {
	slog.InfoContext(ctx, "verification code issued", "phone", MaskPhone(phone))
	slog.DebugContext(ctx, "verification code", "phone", MaskPhone(phone), "code", code)
	return nil
}
