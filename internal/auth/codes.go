// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/olegiv/neongallery/internal/cache"
)

// Verification errors.
var (
	ErrNoPendingCode = errors.New("no pending verification code")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrCodeMismatch  = errors.New("verification code mismatch")
	ErrCooldown      = errors.New("verification code requested too recently")
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// Cache key prefixes.
const (
	codeKeyPrefix     = "code:"
	cooldownKeyPrefix = "cooldown:"
)

// expiredGrace keeps an expired code around long enough to tell the user
// it expired rather than that none was requested.
const expiredGrace = time.Hour

// CodeStoreOptions configures a CodeStore.
type CodeStoreOptions struct {
	TTL      time.Duration // code lifetime, default 10 minutes
	Cooldown time.Duration // minimum gap between codes for one phone, default 60s
	Params   Params        // hashing cost, default DefaultParams
	Now      func() time.Time
}

// CodeStore keeps hashed verification codes keyed by phone number with an
// explicit expiry. Expiry is checked on every read; the backing cache
// evicts stale entries.
type CodeStore struct {
	cache    cache.Cache
	ttl      time.Duration
	cooldown time.Duration
	params   Params
	now      func() time.Time
}

type pendingCode struct {
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewCodeStore creates a CodeStore on c.
func NewCodeStore(c cache.Cache, opts CodeStoreOptions) *CodeStore {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = time.Minute
	}
	if opts.Params == (Params{}) {
		opts.Params = DefaultParams
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CodeStore{
		cache:    c,
		ttl:      opts.TTL,
		cooldown: opts.Cooldown,
		params:   opts.Params,
		now:      opts.Now,
	}
}

// TTL returns the code lifetime.
func (s *CodeStore) TTL() time.Duration {
	return s.ttl
}

// Issue generates and stores a new code for phone, replacing any previous
// one. It fails with ErrCooldown if a code was issued within the cooldown.
func (s *CodeStore) Issue(ctx context.Context, phone string) (string, error) {
	ok, err := s.cache.Add(ctx, cooldownKeyPrefix+phone, []byte{1}, s.cooldown)
	if err != nil {
		return "", fmt.Errorf("checking cooldown: %w", err)
	}
	if !ok {
		return "", ErrCooldown
	}

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	hash, err := s.params.Hash(code)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(pendingCode{Hash: hash, ExpiresAt: s.now().Add(s.ttl)})
	if err != nil {
		return "", fmt.Errorf("encoding code: %w", err)
	}
	if err := s.cache.Set(ctx, codeKeyPrefix+phone, data, s.ttl+expiredGrace); err != nil {
		return "", fmt.Errorf("storing code: %w", err)
	}
	return code, nil
}

// Verify checks code for phone. A matching code is consumed.
func (s *CodeStore) Verify(ctx context.Context, phone, code string) error {
	key := codeKeyPrefix + phone

	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return ErrNoPendingCode
	}
	if err != nil {
		return fmt.Errorf("loading code: %w", err)
	}

	var pending pendingCode
	if err := json.Unmarshal(data, &pending); err != nil {
		_ = s.cache.Delete(ctx, key)
		return ErrNoPendingCode
	}

	if s.now().After(pending.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return ErrCodeExpired
	}

	ok, err := Verify(code, pending.Hash)
	if err != nil {
		return fmt.Errorf("checking code: %w", err)
	}
	if !ok {
		return ErrCodeMismatch
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("consuming code: %w", err)
	}
	return nil
}

// Discard drops any pending code for phone.
func (s *CodeStore) Discard(ctx context.Context, phone string) error {
	return s.cache.Delete(ctx, codeKeyPrefix+phone)
}

// Cancel withdraws a code that never reached the user: the pending code and
// the cooldown are both dropped so the phone can request again at once.
func (s *CodeStore) Cancel(ctx context.Context, phone string) error {
	return errors.Join(
		s.cache.Delete(ctx, codeKeyPrefix+phone),
		s.cache.Delete(ctx, cooldownKeyPrefix+phone),
	)
}

// GenerateCode returns a uniformly random numeric code of CodeLength digits.
func GenerateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
