// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// RegistrationResult is returned on a successful registration.
type RegistrationResult struct {
	UserID int64
	Token  string
}

// RegistrationValidator validates new-account input and creates the user.
// Checks run in a fixed order and the first failure wins.
type RegistrationValidator struct {
	users    UserRepository
	resolver *Resolver
	hasher   PasswordHasher
	tokens   TokenIssuer
	logger   *slog.Logger
}

// NewRegistrationValidator creates a RegistrationValidator.
func NewRegistrationValidator(users UserRepository, resolver *Resolver, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) (*RegistrationValidator, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if resolver == nil {
		return nil, oops.Errorf("resolver is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationValidator{
		users:    users,
		resolver: resolver,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// Register validates the input, creates the user, and issues a session
// token. Format checks short-circuit before any store access; uniqueness is
// checked through the resolver and enforced again by the store's unique
// constraints, so a concurrent duplicate surfaces as a conflict rather than
// a corrupt row.
func (r *RegistrationValidator) Register(ctx context.Context, username, email, password, passwordConfirmation string) (*RegistrationResult, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password != passwordConfirmation {
		return nil, oops.Code("VALIDATION_CONFIRMATION").
			Errorf("password confirmation does not match")
	}

	if err := r.checkAvailable(ctx, AttributeUsername, username); err != nil {
		return nil, err
	}
	if err := r.checkAvailable(ctx, AttributeEmail, email); err != nil {
		return nil, err
	}

	passwordHash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	userID, err := r.users.Create(ctx, username, email, passwordHash)
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with a concurrent registration.
		return nil, oops.Code("CONFLICT_USER_EXISTS").
			Errorf("username or email already registered")
	}
	if err != nil {
		return nil, oops.Code("DATA_ACCESS_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	token, err := r.tokens.Issue(ctx, userID)
	if err != nil {
		// No compensating rollback: the user row stays. Logged for manual
		// reconciliation.
		r.logger.Error("user registered but token issuance failed",
			"user_id", userID,
			"username", username,
			"error", err)
		return nil, err
	}

	return &RegistrationResult{UserID: userID, Token: token}, nil
}

// checkAvailable reports a conflict if the attribute value already resolves
// to a user.
func (r *RegistrationValidator) checkAvailable(ctx context.Context, attr Attribute, value string) error {
	_, err := r.resolver.Resolve(ctx, attr, value)
	if err == nil {
		return oops.Code("CONFLICT_USER_EXISTS").
			With("attribute", attr.String()).
			Errorf("%s already registered", attr)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
