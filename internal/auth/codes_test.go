// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/neongallery/internal/cache"
)

const testPhone = "+8613800138000"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodeStore(t *testing.T) (*CodeStore, *testClock) {
	t.Helper()
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mc.Close() })

	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewCodeStore(mc, CodeStoreOptions{
		TTL:      10 * time.Minute,
		Cooldown: 50 * time.Millisecond,
		Params:   cheapParams,
		Now:      clock.Now,
	})
	return store, clock
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for range 100 {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestCodeStore_IssueAndVerify(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Verify(ctx, testPhone, "xxxxxx"), ErrCodeMismatch)
	require.NoError(t, store.Verify(ctx, testPhone, code))

	// Consumed on success.
	assert.ErrorIs(t, store.Verify(ctx, testPhone, code), ErrNoPendingCode)
}

func TestCodeStore_NoPendingCode(t *testing.T) {
	store, _ := newTestCodeStore(t)
	assert.ErrorIs(t, store.Verify(context.Background(), testPhone, "123456"), ErrNoPendingCode)
}

func TestCodeStore_Expired(t *testing.T) {
	store, clock := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)
	assert.ErrorIs(t, store.Verify(ctx, testPhone, code), ErrCodeExpired)
	assert.ErrorIs(t, store.Verify(ctx, testPhone, code), ErrNoPendingCode)
}

func TestCodeStore_Cooldown(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	_, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)

	_, err = store.Issue(ctx, testPhone)
	assert.ErrorIs(t, err, ErrCooldown)

	// Other phones are independent.
	_, err = store.Issue(ctx, "+8613900139000")
	assert.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, err = store.Issue(ctx, testPhone)
	assert.NoError(t, err)
}

func TestCodeStore_ReissueReplacesCode(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)
	second, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, store.Verify(ctx, testPhone, first), ErrCodeMismatch)
	}
	assert.NoError(t, store.Verify(ctx, testPhone, second))
}

func TestCodeStore_Discard(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)
	require.NoError(t, store.Discard(ctx, testPhone))
	assert.ErrorIs(t, store.Verify(ctx, testPhone, code), ErrNoPendingCode)
}

func TestCodeStore_Cancel(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, testPhone)
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, testPhone))
	assert.ErrorIs(t, store.Verify(ctx, testPhone, code), ErrNoPendingCode)

	// no cooldown after a cancelled code
	_, err = store.Issue(ctx, testPhone)
	assert.NoError(t, err)
}

func TestCodeStore_ConcurrentIssue(t *testing.T) {
	store, _ := newTestCodeStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	issued := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Issue(ctx, testPhone); err == nil {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, issued)
}
