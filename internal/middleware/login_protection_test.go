// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const testAccount = "+8613800138000"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestProtection(maxAttempts int, lockout, window time.Duration) (*LoginProtection, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockout,
		AttemptWindow:     window,
		Now:               clock.Now,
	})
	return lp, clock
}

func TestDefaultLoginProtectionConfig(t *testing.T) {
	cfg := DefaultLoginProtectionConfig()

	if cfg.MaxFailedAttempts != 5 {
		t.Errorf("MaxFailedAttempts = %d, want 5", cfg.MaxFailedAttempts)
	}
	if cfg.LockoutDuration != 15*time.Minute {
		t.Errorf("LockoutDuration = %v, want 15m", cfg.LockoutDuration)
	}
	if cfg.AttemptWindow != 15*time.Minute {
		t.Errorf("AttemptWindow = %v, want 15m", cfg.AttemptWindow)
	}
}

func TestNewLoginProtectionDefaultValues(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})

	if lp.maxFailedAttempts != 5 {
		t.Errorf("maxFailedAttempts = %d, want 5 (default)", lp.maxFailedAttempts)
	}
	if lp.lockoutDuration != 15*time.Minute {
		t.Errorf("lockoutDuration = %v, want 15m (default)", lp.lockoutDuration)
	}
}

func TestLoginProtection_LocksAfterMaxAttempts(t *testing.T) {
	lp, clock := newTestProtection(5, 15*time.Minute, 15*time.Minute)

	for i := 1; i < 5; i++ {
		locked, _ := lp.RecordFailedAttempt(testAccount)
		if locked {
			t.Fatalf("locked after %d attempts", i)
		}
		if got := lp.GetRemainingAttempts(testAccount); got != 5-i {
			t.Errorf("remaining after %d = %d, want %d", i, got, 5-i)
		}
	}

	locked, d := lp.RecordFailedAttempt(testAccount)
	if !locked || d != 15*time.Minute {
		t.Fatalf("fifth attempt: locked=%v duration=%v", locked, d)
	}

	if locked, remaining := lp.IsAccountLocked(testAccount); !locked || remaining != 15*time.Minute {
		t.Errorf("IsAccountLocked = %v, %v", locked, remaining)
	}

	// Other accounts are unaffected.
	if locked, _ := lp.IsAccountLocked("+8613900139000"); locked {
		t.Error("unrelated account locked")
	}

	clock.Advance(15*time.Minute + time.Second)
	if locked, _ := lp.IsAccountLocked(testAccount); locked {
		t.Error("lock should expire")
	}
}

func TestLoginProtection_ExponentialBackoff(t *testing.T) {
	lp, clock := newTestProtection(2, time.Minute, time.Hour)

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}
	for round, expected := range want {
		lp.RecordFailedAttempt(testAccount)
		locked, d := lp.RecordFailedAttempt(testAccount)
		if !locked || d != expected {
			t.Fatalf("round %d: locked=%v duration=%v, want %v", round, locked, d, expected)
		}
		clock.Advance(d + time.Second)
	}
}

func TestLoginProtection_WindowResets(t *testing.T) {
	lp, clock := newTestProtection(3, time.Minute, 10*time.Minute)

	lp.RecordFailedAttempt(testAccount)
	lp.RecordFailedAttempt(testAccount)
	clock.Advance(11 * time.Minute)

	if got := lp.GetRemainingAttempts(testAccount); got != 3 {
		t.Errorf("remaining after window = %d, want 3", got)
	}
	if locked, _ := lp.RecordFailedAttempt(testAccount); locked {
		t.Error("attempt after window should start a new count")
	}
}

func TestLoginProtection_SuccessClears(t *testing.T) {
	lp, _ := newTestProtection(3, time.Minute, time.Hour)

	lp.RecordFailedAttempt(testAccount)
	lp.RecordFailedAttempt(testAccount)
	lp.RecordSuccessfulLogin(testAccount)

	if got := lp.GetRemainingAttempts(testAccount); got != 3 {
		t.Errorf("remaining after success = %d, want 3", got)
	}
}

func TestLoginProtection_CleanupStaleEntries(t *testing.T) {
	lp, clock := newTestProtection(2, time.Minute, 5*time.Minute)

	lp.RecordFailedAttempt("a")
	lp.RecordFailedAttempt("b")
	lp.RecordFailedAttempt("b") // locked for 1m

	if removed := lp.CleanupStaleEntries(); removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}

	clock.Advance(6 * time.Minute)
	if removed := lp.CleanupStaleEntries(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestLoginProtection_Middleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 1})
	h := lp.Middleware()(okHandler)

	do := func(method string) int {
		r := httptest.NewRequest(method, "/api/auth/phone/verify", nil)
		r.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("second POST = %d, want 429", code)
	}
	if code := do(http.MethodGet); code != http.StatusOK {
		t.Errorf("GET = %d, want 200 (not limited)", code)
	}
}
