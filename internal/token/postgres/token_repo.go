// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package postgres implements the token repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/token"
)

// Pool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TokenRepository implements token.Repository using PostgreSQL.
type TokenRepository struct {
	pool Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Upsert inserts or overwrites the token record for a user. Rotation and
// re-issuance both land here; the row is keyed by user id so the last write
// wins.
func (r *TokenRepository) Upsert(ctx context.Context, rec *token.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_tokens (user_id, token, enabled, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET token = $2, enabled = $3, expires_at = $4, updated_at = $6
	`,
		rec.UserID,
		rec.Token,
		rec.Enabled,
		rec.ExpiresAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_UPSERT_FAILED").
			With("operation", "upsert user_token").
			With("user_id", rec.UserID).
			Wrap(err)
	}
	return nil
}

// Get retrieves the token record for a user, enabled or not.
func (r *TokenRepository) Get(ctx context.Context, userID int64) (*token.Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, token, enabled, expires_at, created_at, updated_at
		FROM user_tokens
		WHERE user_id = $1
	`, userID)

	var rec token.Record
	err := row.Scan(
		&rec.UserID,
		&rec.Token,
		&rec.Enabled,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("NOT_FOUND_TOKEN").
			With("user_id", userID).
			Wrap(token.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get user_token").
			With("user_id", userID).
			Wrap(err)
	}
	return &rec, nil
}

// Disable marks the user's token record as revoked. The row is never
// deleted; the disabled record is the audit trail.
func (r *TokenRepository) Disable(ctx context.Context, userID int64) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE user_tokens SET enabled = FALSE, updated_at = NOW()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return oops.Code("TOKEN_DISABLE_FAILED").
			With("operation", "disable user_token").
			With("user_id", userID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("NOT_FOUND_TOKEN").
			With("user_id", userID).
			Wrap(token.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ token.Repository = (*TokenRepository)(nil)
