// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package postgres implements the identity repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/sessionforge/sessionforge/internal/identity"
)

// Pool is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements identity.UserRepository using PostgreSQL. All
// values cross the store boundary as bound parameters, never interpolated
// SQL text.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. The id comes from the store's identity
// sequence, which serializes allocation under concurrent registrations.
func (r *UserRepository) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, username, email, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, oops.Code("CONFLICT_USER_EXISTS").
				With("username", username).
				Wrap(identity.ErrDuplicate)
		}
		return 0, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}
	return id, nil
}

// LookupID resolves an attribute value to a user id.
func (r *UserRepository) LookupID(ctx context.Context, attr identity.Attribute, value string) (int64, error) {
	var query string
	switch attr {
	case identity.AttributeUsername:
		query = `SELECT id FROM users WHERE username = $1`
	case identity.AttributeEmail:
		query = `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`
	default:
		return 0, oops.Code("USER_LOOKUP_FAILED").
			With("attribute", attr.String()).
			Errorf("unsupported lookup attribute")
	}

	var id int64
	err := r.pool.QueryRow(ctx, query, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("USER_NOT_FOUND").
			With("attribute", attr.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "lookup user id").
			With("attribute", attr.String()).
			Wrap(err)
	}
	return id, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, failed_attempts, locked_until, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	var user identity.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return &user, nil
}

// GetCredential retrieves the stored credential hash for a user id.
func (r *UserRepository) GetCredential(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT password_hash FROM users WHERE id = $1
	`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("USER_GET_CREDENTIAL_FAILED").
			With("operation", "get credential").
			With("id", id).
			Wrap(err)
	}
	return hash, nil
}

// UpdateLoginState persists the failure counter and lockout timestamp.
func (r *UserRepository) UpdateLoginState(ctx context.Context, id int64, failedAttempts int, lockedUntil *time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET failed_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`, id, failedAttempts, lockedUntil)
	if err != nil {
		return oops.Code("USER_UPDATE_LOGIN_STATE_FAILED").
			With("operation", "update login state").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ identity.UserRepository = (*UserRepository)(nil)
