// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package config

// Default configuration values.
const (
	DefaultAddr        = "127.0.0.1:3000"
	DefaultMetricsAddr = "127.0.0.1:9100"

	DefaultCacheBackend    = CacheBackendBadger
	DefaultCacheMemorySize = 16384

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			Addr:        DefaultAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
		Cache: CacheSection{
			Backend:    DefaultCacheBackend,
			MemorySize: DefaultCacheMemorySize,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
