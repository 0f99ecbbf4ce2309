// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package store provides the PostgreSQL connection pool and schema
// migrations backing the identity and token repositories.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry configuration. The backoff is only applied to the
// startup ping; individual queries never retry inside this package.
const (
	connectBaseDelay   = 500 * time.Millisecond
	connectMaxAttempts = 5
)

// Connect opens a pgx connection pool and verifies it with a backed-off
// ping. The returned pool is process-wide and safe for concurrent use.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectMaxAttempts, retry.NewExponential(connectBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
