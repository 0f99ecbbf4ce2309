// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/cache"
)

// credentialTTL bounds the staleness of cached credential hashes. There is
// no active invalidation on credential change; rotation is out of scope and
// the TTL bounds the window.
const credentialTTL = time.Hour

// credentialKey builds the cache key for a user's stored credential hash.
func credentialKey(userID int64) string {
	return fmt.Sprintf("user_id_password_%d", userID)
}

// dummyPasswordHash is verified against when a user doesn't exist, keeping
// response time consistent to prevent timing-based user enumeration. It is
// not a real credential and matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialValidator verifies a presented secret against the stored
// credential for a resolved user id, cache-aside over the user repository.
// Only the salted one-way hash ever touches the cache or the store.
type CredentialValidator struct {
	users  UserRepository
	cache  cache.Cache
	hasher PasswordHasher
}

// NewCredentialValidator creates a CredentialValidator.
func NewCredentialValidator(users UserRepository, c cache.Cache, hasher PasswordHasher) (*CredentialValidator, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if c == nil {
		return nil, oops.Errorf("cache is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &CredentialValidator{users: users, cache: c, hasher: hasher}, nil
}

// Verify reports whether the presented secret matches the stored credential
// for the user. It returns (false, nil) for an unknown user as well as a
// wrong secret; the distinction is deliberately not exposed to avoid user
// enumeration. Failed comparisons are never cached.
func (v *CredentialValidator) Verify(ctx context.Context, userID int64, secret string) (bool, error) {
	key := credentialKey(userID)

	cached, found, err := v.cache.Get(ctx, key)
	if err != nil {
		return false, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache get credential").
			Wrap(err)
	}
	if found && cached != "" {
		ok, verifyErr := v.hasher.Verify(secret, cached)
		// A malformed cached hash falls through to the store below.
		if verifyErr == nil {
			return ok, nil
		}
	}

	storedHash, err := v.users.GetCredential(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		// Burn the same verification cost as the real path.
		_, _ = v.hasher.Verify(secret, dummyPasswordHash) //nolint:errcheck // timing equalization only
		return false, nil
	}
	if err != nil {
		return false, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "get credential").
			Wrap(err)
	}

	ok, err := v.hasher.Verify(secret, storedHash)
	if err != nil {
		return false, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify credential").
			Wrap(err)
	}
	if !ok {
		return false, nil
	}

	// Populate only on a successful match so brute-force attempts cannot
	// poison the cache.
	if err := v.cache.Set(ctx, key, storedHash, credentialTTL); err != nil {
		return false, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache set credential").
			Wrap(err)
	}

	return true, nil
}
