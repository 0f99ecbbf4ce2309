// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionforge/sessionforge/internal/cache"
	"github.com/sessionforge/sessionforge/internal/identity"
	"github.com/sessionforge/sessionforge/pkg/errutil"
)

func newResolver(t *testing.T, repo *fakeUserRepo) (*identity.Resolver, cache.Cache) {
	t.Helper()
	c, err := cache.NewMemoryCache(64)
	require.NoError(t, err)
	r, err := identity.NewResolver(repo, c)
	require.NoError(t, err)
	return r, c
}

func TestResolver_MissPopulatesCache(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:pw")
	r, c := newResolver(t, repo)
	ctx := context.Background()

	got, err := r.Resolve(ctx, identity.AttributeUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 1, repo.lookupCalls)

	// Second resolve is served from the cache.
	got, err = r.Resolve(ctx, identity.AttributeUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 1, repo.lookupCalls, "cache hit must not touch the store")

	value, found, err := c.Get(ctx, "user_username_alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", value)
}

func TestResolver_EmailAttribute(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:pw")
	r, c := newResolver(t, repo)
	ctx := context.Background()

	got, err := r.Resolve(ctx, identity.AttributeEmail, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// Key namespaces are attribute-specific.
	_, found, err := c.Get(ctx, "user_email_alice@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = c.Get(ctx, "user_username_alice@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolver_NotFound(t *testing.T) {
	repo := newFakeUserRepo()
	r, _ := newResolver(t, repo)

	_, err := r.Resolve(context.Background(), identity.AttributeUsername, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestResolver_NotFoundIsNotCached(t *testing.T) {
	repo := newFakeUserRepo()
	r, _ := newResolver(t, repo)
	ctx := context.Background()

	_, err := r.Resolve(ctx, identity.AttributeUsername, "nobody")
	require.ErrorIs(t, err, identity.ErrNotFound)

	// Registration between the two calls must be visible.
	id := repo.add("nobody12", "nobody@example.com", "plain:pw")
	repo.users[id].Username = "nobody"

	got, err := r.Resolve(ctx, identity.AttributeUsername, "nobody")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestResolver_CorruptCacheEntryIsRepaired(t *testing.T) {
	repo := newFakeUserRepo()
	id := repo.add("alice", "alice@example.com", "plain:pw")
	r, c := newResolver(t, repo)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user_username_alice", "not-a-number", time.Hour))

	got, err := r.Resolve(ctx, identity.AttributeUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 1, repo.lookupCalls, "corrupt entry falls through to the store")

	value, found, err := c.Get(ctx, "user_username_alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", value, "store result rewrites the corrupt entry")
}

func TestResolver_StoreFailureIsDataAccessError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.lookupErr = errors.New("connection refused")
	r, _ := newResolver(t, repo)

	_, err := r.Resolve(context.Background(), identity.AttributeUsername, "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrNotFound)
	errutil.AssertErrorCode(t, err, "DATA_ACCESS_FAILED")
}

func TestNewResolver_RequiresDependencies(t *testing.T) {
	c, err := cache.NewMemoryCache(4)
	require.NoError(t, err)

	_, err = identity.NewResolver(nil, c)
	assert.Error(t, err)
	_, err = identity.NewResolver(newFakeUserRepo(), nil)
	assert.Error(t, err)
}
