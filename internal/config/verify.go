// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package config

import "github.com/samber/oops"

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	if (cfg.Server.TLS.CertFile == "") != (cfg.Server.TLS.KeyFile == "") {
		return oops.Code("CONFIG_INVALID").
			Errorf("server.tls.cert_file and server.tls.key_file must be set together")
	}

	switch cfg.Cache.Backend {
	case CacheBackendBadger, CacheBackendMemory, CacheBackendDisabled:
	default:
		return oops.Code("CONFIG_INVALID").
			With("backend", cfg.Cache.Backend).
			Errorf("cache.backend must be badger, memory, or disabled")
	}

	if cfg.Cache.Backend == CacheBackendMemory && cfg.Cache.MemorySize < 1 {
		return oops.Code("CONFIG_INVALID").Errorf("cache.memory_size must be at least 1")
	}

	switch cfg.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("format", cfg.Log.Format).
			Errorf("log.format must be json or text")
	}

	return nil
}
