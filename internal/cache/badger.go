// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/samber/oops"
)

// badgerGCInterval is how often the value log garbage collector runs.
const badgerGCInterval = 10 * time.Minute

// BadgerCache implements Cache on an embedded Badger store. TTLs are
// enforced natively by Badger; expired entries are reported as absent.
type BadgerCache struct {
	db     *badger.DB
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewBadgerCache opens (or creates) a Badger database at dir.
func NewBadgerCache(dir string, logger *slog.Logger) (*BadgerCache, error) {
	if dir == "" {
		return nil, oops.Code("CACHE_OPEN_FAILED").Errorf("badger cache dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, oops.Code("CACHE_OPEN_FAILED").
			With("dir", dir).
			Wrap(err)
	}

	c := &BadgerCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go c.gcLoop()

	return c, nil
}

// Get retrieves a value by key.
func (c *BadgerCache) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("CACHE_GET_FAILED").With("key", key).Wrap(err)
	}
	return string(value), true, nil
}

// Set stores a value. A zero TTL stores the entry without expiry.
func (c *BadgerCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return oops.Code("CACHE_SET_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

// Expire rewrites an existing entry with a fresh TTL. Badger has no
// standalone TTL update, so the value is read and re-stored.
func (c *BadgerCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	value, found, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return c.Set(ctx, key, value, ttl)
}

// Delete removes an entry immediately.
func (c *BadgerCache) Delete(_ context.Context, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return oops.Code("CACHE_DELETE_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

// Close stops the GC loop and closes the database.
func (c *BadgerCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
	if err := c.db.Close(); err != nil {
		return oops.Code("CACHE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// gcLoop periodically reclaims space from the Badger value log.
func (c *BadgerCache) gcLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := c.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				c.logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

// badgerLogger adapts slog to badger.Logger. Badger's INFO output is noisy
// for a cache, so it is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Compile-time interface check.
var _ Cache = (*BadgerCache)(nil)
