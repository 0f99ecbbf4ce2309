// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sessionforge/sessionforge/internal/cache"
	"github.com/sessionforge/sessionforge/internal/config"
	"github.com/sessionforge/sessionforge/internal/httpserver"
	"github.com/sessionforge/sessionforge/internal/identity"
	identitypg "github.com/sessionforge/sessionforge/internal/identity/postgres"
	"github.com/sessionforge/sessionforge/internal/logging"
	"github.com/sessionforge/sessionforge/internal/observability"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/tlsutil"
	"github.com/sessionforge/sessionforge/internal/token"
	tokenpg "github.com/sessionforge/sessionforge/internal/token/postgres"
	"github.com/sessionforge/sessionforge/internal/xdg"
	"github.com/sessionforge/sessionforge/pkg/errutil"
)

const shutdownTimeout = 15 * time.Second

// serveConfig holds flags for the serve command.
type serveConfig struct {
	autoMigrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	sc := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server together with the observability endpoint
(metrics and health probes). Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, sc)
		},
	}

	cmd.Flags().BoolVar(&sc.autoMigrate, "auto-migrate", false, "run pending database migrations before serving")
	cmd.Flags().String("server.addr", config.DefaultAddr, "API listen address")
	cmd.Flags().String("server.metrics_addr", config.DefaultMetricsAddr, "observability listen address")
	cmd.Flags().String("database.url", "", "PostgreSQL connection string")
	cmd.Flags().String("cache.backend", config.DefaultCacheBackend, "cache backend: badger, memory, or disabled")

	return cmd
}

func runServe(cmd *cobra.Command, sc *serveConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("sessionforge", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sc.autoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return err
		}
	}

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Observability first so the cache can be instrumented with its counters.
	var ready atomic.Bool
	obs := observability.NewServer(cfg.Server.MetricsAddr, ready.Load)
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}
	metrics := obs.Metrics()

	kv, err := buildCache(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			errutil.LogError(logger, "cache close failed", closeErr)
		}
	}()
	instrumented := cache.NewInstrumented(kv, metrics.CacheHits, metrics.CacheMisses)

	userRepo := identitypg.NewUserRepository(pool)
	tokenRepo := tokenpg.NewTokenRepository(pool)
	hasher := identity.NewArgon2idHasher()

	tokenManager, err := token.NewManager(tokenRepo, instrumented, logger)
	if err != nil {
		return err
	}
	resolver, err := identity.NewResolver(userRepo, instrumented)
	if err != nil {
		return err
	}
	credentials, err := identity.NewCredentialValidator(userRepo, instrumented, hasher)
	if err != nil {
		return err
	}
	loginService, err := identity.NewService(userRepo, resolver, credentials, tokenManager, hasher, logger)
	if err != nil {
		return err
	}
	registration, err := identity.NewRegistrationValidator(userRepo, resolver, hasher, tokenManager, logger)
	if err != nil {
		return err
	}

	handler, err := httpserver.NewHandler(loginService, registration, tokenManager, metrics, logger)
	if err != nil {
		return err
	}

	corsOpts := httpserver.DefaultCORSOptions(cfg.Server.CORSOrigins)
	router := httpserver.NewRouter(httpserver.RouterOptions{
		Handler:     handler,
		Logger:      logger,
		CORSOptions: &corsOpts,
	})
	tlsConf, err := buildTLS(cfg)
	if err != nil {
		stopObservability(obs, logger)
		return err
	}

	api := httpserver.NewServer(cfg.Server.Addr, router, tlsConf, logger)
	apiErrCh, err := api.Start()
	if err != nil {
		stopObservability(obs, logger)
		return err
	}

	ready.Store(true)
	logger.Info("sessionforge serving",
		"addr", api.Addr(), "metrics_addr", obs.Addr(), "cache_backend", cfg.Cache.Backend)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			serveErr = oops.With("component", "api").Wrap(err)
		}
	case err := <-obsErrCh:
		if err != nil {
			serveErr = oops.With("component", "observability").Wrap(err)
		}
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "api shutdown failed", err)
		serveErr = errors.Join(serveErr, err)
	}
	if err := obs.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "observability shutdown failed", err)
		serveErr = errors.Join(serveErr, err)
	}

	return serveErr
}

// buildTLS builds the API server's TLS config, or nil when TLS is off.
// Operator-provided certificate files win; otherwise a self-signed
// certificate is generated under the XDG state directory.
func buildTLS(cfg *config.Config) (*tls.Config, error) {
	if !cfg.Server.TLS.Enabled {
		return nil, nil
	}

	var cert tls.Certificate
	var err error
	if cfg.Server.TLS.CertFile != "" {
		cert, err = tls.LoadX509KeyPair(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			return nil, oops.Code("TLS_LOAD_FAILED").
				With("cert_file", cfg.Server.TLS.CertFile).
				Wrap(err)
		}
	} else {
		host, _, splitErr := net.SplitHostPort(cfg.Server.Addr)
		if splitErr != nil {
			host = cfg.Server.Addr
		}
		cert, err = tlsutil.Ensure(xdg.CertsDir(), []string{host})
		if err != nil {
			return nil, err
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// buildCache constructs the configured cache backend.
func buildCache(cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendBadger:
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = xdg.CacheDir()
		}
		if err := xdg.EnsureDir(dir); err != nil {
			return nil, oops.Code("CACHE_INIT_FAILED").With("dir", dir).Wrap(err)
		}
		return cache.NewBadgerCache(dir, logger)
	case config.CacheBackendMemory:
		return cache.NewMemoryCache(cfg.Cache.MemorySize)
	case config.CacheBackendDisabled:
		return cache.NewDisabled(), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("backend", cfg.Cache.Backend).
			Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func stopObservability(obs *observability.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		errutil.LogError(logger, "observability shutdown failed", err)
	}
}
