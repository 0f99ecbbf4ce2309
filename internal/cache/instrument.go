// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented decorates a Cache with hit/miss counters.
type Instrumented struct {
	next   Cache
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewInstrumented wraps next with the given counters.
func NewInstrumented(next Cache, hits, misses prometheus.Counter) *Instrumented {
	return &Instrumented{next: next, hits: hits, misses: misses}
}

// Get counts a hit or miss before returning the underlying result.
func (c *Instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := c.next.Get(ctx, key)
	if err == nil {
		if found {
			c.hits.Inc()
		} else {
			c.misses.Inc()
		}
	}
	return value, found, err
}

// Set passes through to the underlying cache.
func (c *Instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}

// Expire passes through to the underlying cache.
func (c *Instrumented) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.next.Expire(ctx, key, ttl)
}

// Delete passes through to the underlying cache.
func (c *Instrumented) Delete(ctx context.Context, key string) error {
	return c.next.Delete(ctx, key)
}

// Close closes the underlying cache.
func (c *Instrumented) Close() error {
	return c.next.Close()
}

// Compile-time interface check.
var _ Cache = (*Instrumented)(nil)
