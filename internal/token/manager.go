// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/cache"
)

// cacheKey builds the cache key for a user's current token.
func cacheKey(userID int64) string {
	return fmt.Sprintf("user_%d_token", userID)
}

// Manager issues, retrieves, rotates, verifies, and revokes session tokens.
// The store is authoritative; the cache is overwritten or deleted
// synchronously with every store mutation so a stale entry never outlives
// the call that invalidated it. Manager never retries I/O failures; callers
// decide retry policy.
type Manager struct {
	tokens Repository
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a Manager with the default 7-day token TTL.
func NewManager(tokens Repository, c cache.Cache, logger *slog.Logger) (*Manager, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if c == nil {
		return nil, oops.Errorf("cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tokens: tokens,
		cache:  c,
		ttl:    TokenTTL,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Issue generates a fresh token for the user, overwriting both the store
// record and the cache entry. Calling it twice races last-write-wins; the
// synchronous cache overwrite keeps the disagreement window at zero for
// each backend.
func (m *Manager) Issue(ctx context.Context, userID int64) (string, error) {
	tok, err := Generate()
	if err != nil {
		return "", err
	}

	now := m.now()
	rec := &Record{
		UserID:    userID,
		Token:     tok,
		Enabled:   true,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.tokens.Upsert(ctx, rec); err != nil {
		return "", err
	}
	if err := m.cache.Set(ctx, cacheKey(userID), tok, m.ttl); err != nil {
		return "", oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache set token").
			With("user_id", userID).
			Wrap(err)
	}

	return tok, nil
}

// Obtain returns the user's current token. A disabled or expired store
// record surfaces ErrNotFound even when a stale cache entry exists; the
// enabled flag is only ever read from the store.
func (m *Manager) Obtain(ctx context.Context, userID int64) (string, error) {
	key := cacheKey(userID)

	cached, found, err := m.cache.Get(ctx, key)
	if err != nil {
		return "", oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache get token").
			With("user_id", userID).
			Wrap(err)
	}

	rec, err := m.tokens.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", err
	}
	if err != nil {
		return "", err
	}
	if !rec.Enabled || rec.IsExpiredAt(m.now()) {
		// Drop any stale cache copy before reporting absence.
		if delErr := m.cache.Delete(ctx, key); delErr != nil {
			m.logger.Warn("failed to drop stale token cache entry", "user_id", userID, "error", delErr)
		}
		return "", oops.Code("NOT_FOUND_TOKEN").
			With("user_id", userID).
			Wrap(ErrNotFound)
	}

	if found && Equal(cached, rec.Token) {
		return cached, nil
	}

	if err := m.cache.Set(ctx, key, rec.Token, m.remainingTTL(rec)); err != nil {
		return "", oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache set token").
			With("user_id", userID).
			Wrap(err)
	}
	return rec.Token, nil
}

// Update rotates the user's token, overwriting cache and store.
func (m *Manager) Update(ctx context.Context, userID int64) (string, error) {
	return m.Issue(ctx, userID)
}

// Verify reports whether the presented token is the user's current, enabled,
// unexpired token. A cache hit with an equal value is accepted as valid; any
// other outcome falls through to the store, and a valid store match
// repopulates the cache with the remaining window of the original TTL.
func (m *Manager) Verify(ctx context.Context, userID int64, presented string) (bool, error) {
	if presented == "" {
		return false, nil
	}
	key := cacheKey(userID)

	cached, found, err := m.cache.Get(ctx, key)
	if err != nil {
		return false, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache get token").
			With("user_id", userID).
			Wrap(err)
	}
	if found && Equal(cached, presented) {
		return true, nil
	}

	rec, err := m.tokens.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !rec.Enabled || rec.IsExpiredAt(m.now()) || !Equal(rec.Token, presented) {
		return false, nil
	}

	if err := m.cache.Set(ctx, key, rec.Token, m.remainingTTL(rec)); err != nil {
		return false, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache set token").
			With("user_id", userID).
			Wrap(err)
	}
	return true, nil
}

// Logout revokes the user's current token if the presented token matches it.
// The store row is soft-disabled and the cache entry is deleted in the same
// call; a mismatched token is an authentication error.
func (m *Manager) Logout(ctx context.Context, userID int64, presented string) error {
	key := cacheKey(userID)

	current, found, err := m.cache.Get(ctx, key)
	if err != nil {
		return oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache get token").
			With("user_id", userID).
			Wrap(err)
	}
	if !found {
		rec, getErr := m.tokens.Get(ctx, userID)
		if errors.Is(getErr, ErrNotFound) {
			return oops.Code("AUTH_TOKEN_MISMATCH").
				With("user_id", userID).
				Errorf("token does not match the current session")
		}
		if getErr != nil {
			return getErr
		}
		if !rec.Enabled {
			return oops.Code("AUTH_TOKEN_MISMATCH").
				With("user_id", userID).
				Errorf("token does not match the current session")
		}
		current = rec.Token
	}

	if !Equal(current, presented) {
		return oops.Code("AUTH_TOKEN_MISMATCH").
			With("user_id", userID).
			Errorf("token does not match the current session")
	}

	if err := m.tokens.Disable(ctx, userID); err != nil {
		return err
	}
	if err := m.cache.Delete(ctx, key); err != nil {
		return oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache delete token").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// remainingTTL is the time left in the record's original window, so cache
// repopulation never extends a token's life past the store's expires_at.
func (m *Manager) remainingTTL(rec *Record) time.Duration {
	remaining := rec.ExpiresAt.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
