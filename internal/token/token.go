// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package token manages the session-token lifecycle: issuance, retrieval,
// rotation, verification, and revocation, cache-aside over the relational
// store. Tokens are opaque 256-bit values; revocation is a soft disable so
// the audit trail survives.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Token configuration.
const (
	// TokenSeedBytes is the amount of randomness a token is derived from.
	TokenSeedBytes = 512

	// TokenTTL is the relative lifetime of a token, applied identically to
	// the cache entry and the store's expires_at column.
	TokenTTL = 7 * 24 * time.Hour
)

// ErrNotFound is returned when a token record is absent or disabled.
var ErrNotFound = errors.New("token not found")

// Record is the durable state of a user's current session token. One row
// per user; rotation overwrites in place, revocation flips Enabled.
type Record struct {
	UserID    int64
	Token     string
	Enabled   bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpiredAt returns true if the record would be expired at the given time.
func (r *Record) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// Generate derives a fresh opaque token: 512 random bytes hashed to a
// 256-bit value, hex encoded (64 characters).
func Generate() (string, error) {
	seed := make([]byte, TokenSeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenSeedBytes).
			Wrap(err)
	}
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:]), nil
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Repository manages token persistence. Implementations must bind every
// value as a query parameter.
type Repository interface {
	// Upsert inserts or overwrites the token record for a user.
	Upsert(ctx context.Context, rec *Record) error

	// Get retrieves the token record for a user, enabled or not.
	// Returns an error wrapping ErrNotFound when no record exists.
	Get(ctx context.Context, userID int64) (*Record, error)

	// Disable marks the user's token record as revoked.
	Disable(ctx context.Context, userID int64) error
}
