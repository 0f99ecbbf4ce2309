// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/cache"
)

// resolveTTL bounds the staleness of cached attribute-to-id mappings.
const resolveTTL = time.Hour

// resolveKey builds the attribute-specific cache key for a lookup. Key
// namespaces are per-attribute so a username and an email with the same
// spelling can never collide.
func resolveKey(attr Attribute, value string) string {
	return fmt.Sprintf("user_%s_%s", attr, value)
}

// Resolver maps (attribute, value) pairs to canonical user ids, cache-aside
// over the user repository.
type Resolver struct {
	users UserRepository
	cache cache.Cache
}

// NewResolver creates a Resolver.
func NewResolver(users UserRepository, c cache.Cache) (*Resolver, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if c == nil {
		return nil, oops.Errorf("cache is required")
	}
	return &Resolver{users: users, cache: c}, nil
}

// Resolve returns the user id for the given attribute value. A missing user
// is reported as an error wrapping ErrNotFound; any store or cache I/O
// failure is a data-access error. Resolve never retries; that is the
// caller's call.
func (r *Resolver) Resolve(ctx context.Context, attr Attribute, value string) (int64, error) {
	key := resolveKey(attr, value)

	cached, found, err := r.cache.Get(ctx, key)
	if err != nil {
		return 0, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache get").
			With("attribute", attr.String()).
			Wrap(err)
	}
	if found && cached != "" {
		id, parseErr := strconv.ParseInt(cached, 10, 64)
		if parseErr == nil && id >= 1 {
			return id, nil
		}
		// A corrupt entry is treated as a miss; the store rewrite below
		// repairs it.
	}

	id, err := r.users.LookupID(ctx, attr, value)
	if errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "lookup user id").
			With("attribute", attr.String()).
			Wrap(err)
	}

	if err := r.cache.Set(ctx, key, strconv.FormatInt(id, 10), resolveTTL); err != nil {
		return 0, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "cache set").
			With("attribute", attr.String()).
			Wrap(err)
	}

	return id, nil
}
