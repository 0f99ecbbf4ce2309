// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sessionforge/sessionforge/internal/identity"
)

// fakeUserRepo is an in-memory identity.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*identity.User

	lookupCalls     int
	credentialCalls int
	updateCalls     int

	createErr error
	lookupErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int64]*identity.User)}
}

func (f *fakeUserRepo) add(username, email, passwordHash string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.users[id] = &identity.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return id
}

func (f *fakeUserRepo) Create(_ context.Context, username, email, passwordHash string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.mu.Lock()
	for _, u := range f.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			f.mu.Unlock()
			return 0, fmt.Errorf("user insert: %w", identity.ErrDuplicate)
		}
	}
	f.mu.Unlock()
	return f.add(username, email, passwordHash), nil
}

func (f *fakeUserRepo) LookupID(_ context.Context, attr identity.Attribute, value string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	for id, u := range f.users {
		switch attr {
		case identity.AttributeUsername:
			if u.Username == value {
				return id, nil
			}
		case identity.AttributeEmail:
			if strings.EqualFold(u.Email, value) {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("lookup %s: %w", attr, identity.ErrNotFound)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, identity.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetCredential(_ context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentialCalls++
	u, ok := f.users[id]
	if !ok {
		return "", fmt.Errorf("user %d: %w", id, identity.ErrNotFound)
	}
	return u.PasswordHash, nil
}

func (f *fakeUserRepo) UpdateLoginState(_ context.Context, id int64, failedAttempts int, lockedUntil *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, identity.ErrNotFound)
	}
	u.FailedAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

var _ identity.UserRepository = (*fakeUserRepo)(nil)

// fakeHasher is a transparent identity.PasswordHasher for tests. Hashes are
// "plain:<password>"; anything else is a malformed hash.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", identity.ErrEmptyPassword
	}
	return "plain:" + password, nil
}

func (fakeHasher) Verify(password, hash string) (bool, error) {
	rest, ok := strings.CutPrefix(hash, "plain:")
	if !ok {
		return false, fmt.Errorf("malformed hash %q", hash)
	}
	return rest == password, nil
}

var _ identity.PasswordHasher = fakeHasher{}

// fakeIssuer is a deterministic identity.TokenIssuer.
type fakeIssuer struct {
	issued []int64
	err    error
}

func (f *fakeIssuer) Issue(_ context.Context, userID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, userID)
	return fmt.Sprintf("token-for-%d", userID), nil
}

var _ identity.TokenIssuer = (*fakeIssuer)(nil)
