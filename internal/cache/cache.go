// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package cache provides the cache-aside key/value client used in front of
// the relational store. Entries are a derived projection of store state and
// may be dropped at any time without loss of correctness.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is the key/value client contract. A TTL of zero means the entry
// lives until it is explicitly overwritten or deleted.
type Cache interface {
	// Get retrieves a value. The found flag distinguishes an absent key
	// from an empty value; absence is never an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Expire resets the TTL of an existing entry. Expiring an absent key
	// is a no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes an entry immediately. Deleting an absent key is a
	// no-op.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
