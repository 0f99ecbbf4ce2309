// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Username and password constraints.
const (
	MinUsernameLength = 4
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// passwordSpecials are the special characters a password must contain at
// least one of.
const passwordSpecials = "$@!%*?.&_-"

// usernameRegex matches word characters and CJK ideographs, 4 to 64 runes.
var usernameRegex = regexp.MustCompile(`^[0-9A-Za-z_\p{Han}]{4,64}$`)

// emailRegex matches the conventional local@domain.tld shape. It is a
// gatekeeper for obviously malformed input, not a full RFC 5322 parser.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// User is a registered account. Owned by the relational store; resolver and
// credential lookups hold only transient cache projections of its fields.
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLocked returns true if the user is currently locked out.
func (u *User) IsLocked() bool {
	return IsLockedOut(u.LockedUntil)
}

// RecordFailure increments the failure counter and sets lockout if the
// threshold is reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
	u.UpdatedAt = time.Now()
}

// RecordSuccess resets the failure counter and lockout.
func (u *User) RecordSuccess() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
}

// ValidateUsername checks that a username is 4-64 word characters or CJK
// ideographs.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return oops.Code("VALIDATION_USERNAME").
			With("min", MinUsernameLength).
			With("max", MaxUsernameLength).
			Errorf("username must be %d-%d letters, digits, underscores, or CJK ideographs", MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// ValidatePassword checks length and required character classes: at least
// one lowercase letter, one uppercase letter, one digit, and one of the
// special characters.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return oops.Code("VALIDATION_PASSWORD").
			Errorf("password must be %d-%d characters", MinPasswordLength, MaxPasswordLength)
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return oops.Code("VALIDATION_PASSWORD").
			Errorf("password must contain a lowercase letter, an uppercase letter, a digit, and one of %s", passwordSpecials)
	}
	return nil
}

// ValidateEmail checks that an email has a conventional local@domain.tld
// shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return oops.Code("VALIDATION_EMAIL").Errorf("email address is malformed")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create inserts a new user and returns the store-assigned id.
	// A username or email collision returns an error wrapping ErrDuplicate.
	Create(ctx context.Context, username, email, passwordHash string) (int64, error)

	// LookupID resolves an attribute value to a user id.
	// Returns an error wrapping ErrNotFound when no user matches.
	LookupID(ctx context.Context, attr Attribute, value string) (int64, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetCredential retrieves the stored credential for a user id.
	GetCredential(ctx context.Context, id int64) (string, error)

	// UpdateLoginState persists the failure counter and lockout timestamp.
	UpdateLoginState(ctx context.Context, id int64, failedAttempts int, lockedUntil *time.Time) error
}
