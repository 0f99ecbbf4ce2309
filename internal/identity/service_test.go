// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionforge/sessionforge/internal/cache"
	"github.com/sessionforge/sessionforge/internal/identity"
	"github.com/sessionforge/sessionforge/pkg/errutil"
)

func newLoginService(t *testing.T, repo *fakeUserRepo, issuer *fakeIssuer) *identity.Service {
	t.Helper()
	c, err := cache.NewMemoryCache(64)
	require.NoError(t, err)
	resolver, err := identity.NewResolver(repo, c)
	require.NoError(t, err)
	credentials, err := identity.NewCredentialValidator(repo, c, fakeHasher{})
	require.NoError(t, err)
	svc, err := identity.NewService(repo, resolver, credentials, issuer, fakeHasher{}, nil)
	require.NoError(t, err)
	return svc
}

func TestLogin_ByUsername(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	svc := newLoginService(t, repo, &fakeIssuer{})

	userID, token, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, id, userID)
	assert.Equal(t, "token-for-1", token)
}

func TestLogin_ByEmail(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	svc := newLoginService(t, repo, &fakeIssuer{})

	userID, _, err := svc.Login(context.Background(), identity.LoginWayEmail, "alice@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, id, userID)
}

func TestLogin_ByID(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	svc := newLoginService(t, repo, &fakeIssuer{})

	userID, _, err := svc.Login(context.Background(), identity.LoginWayID, "1", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, id, userID)
}

func TestLogin_UnknownUserIsAuthFailure(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newLoginService(t, repo, &fakeIssuer{})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "nobody", "Secret1!")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	assert.NotErrorIs(t, err, identity.ErrNotFound, "existence must not leak to the caller")
}

func TestLogin_MalformedIDIsAuthFailure(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newLoginService(t, repo, &fakeIssuer{})

	for _, input := range []string{"abc", "-1", "0", ""} {
		_, _, err := svc.Login(context.Background(), identity.LoginWayID, input, "Secret1!")
		require.Error(t, err, "input %q", input)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	}
}

func TestLogin_WrongPasswordRecordsFailure(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	svc := newLoginService(t, repo, &fakeIssuer{})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "wrong")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")

	user, getErr := repo.GetByID(context.Background(), id)
	require.NoError(t, getErr)
	assert.Equal(t, 1, user.FailedAttempts)
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	repo.users[id].FailedAttempts = 3
	svc := newLoginService(t, repo, &fakeIssuer{})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "Secret1!")
	require.NoError(t, err)

	user, getErr := repo.GetByID(context.Background(), id)
	require.NoError(t, getErr)
	assert.Zero(t, user.FailedAttempts)
}

func TestLogin_LockedAccountRejectsCorrectPassword(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	lockedUntil := time.Now().Add(10 * time.Minute)
	repo.users[id].LockedUntil = &lockedUntil
	svc := newLoginService(t, repo, &fakeIssuer{})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "Secret1!")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_ACCOUNT_LOCKED")
}

func TestLogin_ExpiredLockoutAdmits(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:Secret1!")
	lockedUntil := time.Now().Add(-time.Minute)
	repo.users[id].LockedUntil = &lockedUntil
	repo.users[id].FailedAttempts = identity.LockoutThreshold
	svc := newLoginService(t, repo, &fakeIssuer{})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "Secret1!")
	require.NoError(t, err)
}

func TestLogin_TokenIssueFailurePropagates(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add("alice", "alice@example.com", "plain:Secret1!")
	svc := newLoginService(t, repo, &fakeIssuer{err: assert.AnError})

	_, _, err := svc.Login(context.Background(), identity.LoginWayUsername, "alice", "Secret1!")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
