// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
)

// DefaultMemoryCacheSize bounds the in-memory cache when no size is given.
const DefaultMemoryCacheSize = 16384

// memoryEntry pairs a value with its expiry deadline. A zero deadline means
// the entry does not expire.
type memoryEntry struct {
	value    string
	deadline time.Time
}

// MemoryCache implements Cache with a bounded in-process LRU. Expiry is
// lazy: entries past their deadline are dropped on the next read.
type MemoryCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memoryEntry]
	now func() time.Time
}

// NewMemoryCache creates a MemoryCache holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	l, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, oops.Code("CACHE_OPEN_FAILED").With("size", size).Wrap(err)
	}
	return &MemoryCache{lru: l, now: time.Now}, nil
}

// Get retrieves a value, dropping it if the deadline has passed.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return "", false, nil
	}
	if !entry.deadline.IsZero() && c.now().After(entry.deadline) {
		c.lru.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a value with the given TTL.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.deadline = c.now().Add(ttl)
	}
	c.lru.Add(key, entry)
	return nil
}

// Expire resets the deadline of an existing entry.
func (c *MemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	if !entry.deadline.IsZero() && c.now().After(entry.deadline) {
		c.lru.Remove(key)
		return nil
	}
	if ttl > 0 {
		entry.deadline = c.now().Add(ttl)
	} else {
		entry.deadline = time.Time{}
	}
	c.lru.Add(key, entry)
	return nil
}

// Delete removes an entry immediately.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}

// Compile-time interface check.
var _ Cache = (*MemoryCache)(nil)
