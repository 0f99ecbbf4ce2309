// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

//go:build integration

package integration

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sessionforge/sessionforge/internal/cache"
	"github.com/sessionforge/sessionforge/internal/identity"
	identitypg "github.com/sessionforge/sessionforge/internal/identity/postgres"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/token"
	tokenpg "github.com/sessionforge/sessionforge/internal/token/postgres"
)

type testEnv struct {
	pool         *pgxpool.Pool
	kv           cache.Cache
	login        *identity.Service
	registration *identity.RegistrationValidator
	tokens       *token.Manager
	cleanup      func()
}

// setupEnv starts a PostgreSQL container, migrates the schema, and wires
// the full service stack over a memory cache.
func setupEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sessionforge_test"),
		postgres.WithUsername("sessionforge"),
		postgres.WithPassword("sessionforge"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Close(); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	kv, err := cache.NewMemoryCache(256)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	logger := slog.Default()
	userRepo := identitypg.NewUserRepository(pool)
	tokenRepo := tokenpg.NewTokenRepository(pool)
	hasher := identity.NewArgon2idHasher()

	tokens, err := token.NewManager(tokenRepo, kv, logger)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	resolver, err := identity.NewResolver(userRepo, kv)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	credentials, err := identity.NewCredentialValidator(userRepo, kv, hasher)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	login, err := identity.NewService(userRepo, resolver, credentials, tokens, hasher, logger)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	registration, err := identity.NewRegistrationValidator(userRepo, resolver, hasher, tokens, logger)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &testEnv{
		pool:         pool,
		kv:           kv,
		login:        login,
		registration: registration,
		tokens:       tokens,
		cleanup: func() {
			pool.Close()
			_ = container.Terminate(ctx)
		},
	}, nil
}

func errorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}

var _ = Describe("Account and token lifecycle", Ordered, func() {
	var env *testEnv
	ctx := context.Background()

	BeforeAll(func() {
		var err error
		env, err = setupEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		env.cleanup()
	})

	Describe("registration", func() {
		It("creates an account and issues a token", func() {
			result, err := env.registration.Register(ctx, "alice", "alice@example.com", "Aa1!aaaa", "Aa1!aaaa")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.UserID).To(BeNumerically(">", 0))
			Expect(result.Token).To(HaveLen(64))

			valid, err := env.tokens.Verify(ctx, result.UserID, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeTrue())
		})

		It("rejects a duplicate username", func() {
			_, err := env.registration.Register(ctx, "alice", "other@example.com", "Aa1!aaaa", "Aa1!aaaa")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("CONFLICT_USER_EXISTS"))
		})

		It("rejects a duplicate email regardless of case", func() {
			_, err := env.registration.Register(ctx, "alice2", "Alice@Example.COM", "Aa1!aaaa", "Aa1!aaaa")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("CONFLICT_USER_EXISTS"))
		})
	})

	Describe("login", func() {
		var userID int64

		BeforeAll(func() {
			result, err := env.registration.Register(ctx, "bob", "bob@example.com", "Bb2!bbbb", "Bb2!bbbb")
			Expect(err).NotTo(HaveOccurred())
			userID = result.UserID
		})

		It("resolves username, email, and id to the same account", func() {
			byName, _, err := env.login.Login(ctx, identity.LoginWayUsername, "bob", "Bb2!bbbb")
			Expect(err).NotTo(HaveOccurred())

			byEmail, _, err := env.login.Login(ctx, identity.LoginWayEmail, "BOB@example.com", "Bb2!bbbb")
			Expect(err).NotTo(HaveOccurred())

			byID, _, err := env.login.Login(ctx, identity.LoginWayID, itoa(userID), "Bb2!bbbb")
			Expect(err).NotTo(HaveOccurred())

			Expect(byName).To(Equal(userID))
			Expect(byEmail).To(Equal(userID))
			Expect(byID).To(Equal(userID))
		})

		It("rejects a wrong password", func() {
			_, _, err := env.login.Login(ctx, identity.LoginWayUsername, "bob", "WrongPass1!")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("AUTH_INVALID_CREDENTIALS"))
		})

		It("answers unknown users with the same error as a bad password", func() {
			_, _, err := env.login.Login(ctx, identity.LoginWayUsername, "nobody", "Bb2!bbbb")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("AUTH_INVALID_CREDENTIALS"))
		})

		It("locks the account after repeated failures", func() {
			for range identity.LockoutThreshold {
				_, _, _ = env.login.Login(ctx, identity.LoginWayUsername, "bob", "WrongPass1!")
			}

			_, _, err := env.login.Login(ctx, identity.LoginWayUsername, "bob", "Bb2!bbbb")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("AUTH_ACCOUNT_LOCKED"))
		})
	})

	Describe("tokens", func() {
		var userID int64
		var issued string

		BeforeAll(func() {
			result, err := env.registration.Register(ctx, "carol", "carol@example.com", "Cc3!cccc", "Cc3!cccc")
			Expect(err).NotTo(HaveOccurred())
			userID = result.UserID
			issued = result.Token
		})

		It("obtains the same token twice without mutation", func() {
			first, err := env.tokens.Obtain(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			second, err := env.tokens.Obtain(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(issued))
			Expect(second).To(Equal(first))
		})

		It("verifies from the store after a cache eviction", func() {
			Expect(env.kv.Delete(ctx, "user_"+itoa(userID)+"_token")).To(Succeed())

			valid, err := env.tokens.Verify(ctx, userID, issued)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeTrue())
		})

		It("invalidates the old token on rotation", func() {
			rotated, err := env.tokens.Update(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated).NotTo(Equal(issued))

			valid, err := env.tokens.Verify(ctx, userID, issued)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeFalse())

			issued = rotated
		})

		It("rejects logout with a mismatched token", func() {
			err := env.tokens.Logout(ctx, userID, "0000000000000000000000000000000000000000000000000000000000000000")
			Expect(err).To(HaveOccurred())
			Expect(errorCode(err)).To(Equal("AUTH_TOKEN_MISMATCH"))
		})

		It("revokes on logout and refuses the token afterwards", func() {
			Expect(env.tokens.Logout(ctx, userID, issued)).To(Succeed())

			valid, err := env.tokens.Verify(ctx, userID, issued)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeFalse())

			_, err = env.tokens.Obtain(ctx, userID)
			Expect(err).To(HaveOccurred())
		})
	})
})

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
