// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/samber/oops"
)

// TokenIssuer creates a session token for an authenticated user. Satisfied
// by token.Manager.
type TokenIssuer interface {
	Issue(ctx context.Context, userID int64) (string, error)
}

// Service orchestrates a login: resolve the identifier, verify the secret,
// and issue a session token.
type Service struct {
	users       UserRepository
	resolver    *Resolver
	credentials *CredentialValidator
	tokens      TokenIssuer
	hasher      PasswordHasher
	logger      *slog.Logger
}

// NewService creates a login Service.
func NewService(users UserRepository, resolver *Resolver, credentials *CredentialValidator, tokens TokenIssuer, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if resolver == nil {
		return nil, oops.Errorf("resolver is required")
	}
	if credentials == nil {
		return nil, oops.Errorf("credential validator is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:       users,
		resolver:    resolver,
		credentials: credentials,
		tokens:      tokens,
		hasher:      hasher,
		logger:      logger,
	}, nil
}

// errInvalidCredentials is the single failure surfaced for unknown user,
// wrong secret, and malformed id alike.
func errInvalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid identifier or password")
}

// Login authenticates a user by the given way and returns the user id and a
// fresh session token.
func (s *Service) Login(ctx context.Context, way LoginWay, input, password string) (int64, string, error) {
	userID, err := s.resolveLoginInput(ctx, way, input)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn the same verification cost as a real credential check.
			_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing equalization only
			return 0, "", errInvalidCredentials()
		}
		return 0, "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing equalization only
		return 0, "", errInvalidCredentials()
	}
	if err != nil {
		return 0, "", oops.Code("DATA_ACCESS_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	ok, err := s.credentials.Verify(ctx, userID, password)
	if err != nil {
		return 0, "", err
	}
	if !ok {
		user.RecordFailure()
		// Best effort; the login fails regardless.
		if updErr := s.users.UpdateLoginState(ctx, userID, user.FailedAttempts, user.LockedUntil); updErr != nil {
			s.logger.Warn("failed to record login failure", "user_id", userID, "error", updErr)
		}
		return 0, "", errInvalidCredentials()
	}

	// Checked after verification to keep response time uniform.
	if user.IsLocked() {
		return 0, "", oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	user.RecordSuccess()
	if updErr := s.users.UpdateLoginState(ctx, userID, user.FailedAttempts, user.LockedUntil); updErr != nil {
		s.logger.Warn("failed to reset login failures", "user_id", userID, "error", updErr)
	}

	token, err := s.tokens.Issue(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	return userID, token, nil
}

// resolveLoginInput maps the login way to a user id. The switch is
// exhaustive over LoginWay.
func (s *Service) resolveLoginInput(ctx context.Context, way LoginWay, input string) (int64, error) {
	switch way {
	case LoginWayUsername:
		return s.resolver.Resolve(ctx, AttributeUsername, input)
	case LoginWayEmail:
		return s.resolver.Resolve(ctx, AttributeEmail, input)
	case LoginWayID:
		id, err := strconv.ParseInt(input, 10, 64)
		if err != nil || id < 1 {
			return 0, ErrNotFound
		}
		return id, nil
	default:
		return 0, oops.Code("VALIDATION_LOGIN_WAY").
			With("login_way", way.String()).
			Errorf("unknown login way")
	}
}
