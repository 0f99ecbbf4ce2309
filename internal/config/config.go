// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package config defines the sessionforge server configuration.
package config

// Config is the root configuration for the server.
type Config struct {
	Server   ServerSection   `koanf:"server" json:"server"`
	Database DatabaseSection `koanf:"database" json:"database"`
	Cache    CacheSection    `koanf:"cache" json:"cache"`
	Log      LogSection      `koanf:"log" json:"log"`
}

// ServerSection configures the HTTP endpoints.
type ServerSection struct {
	// Addr is the listen address of the API server.
	Addr string `koanf:"addr" json:"addr"`

	// MetricsAddr is the listen address of the observability server
	// (metrics and health probes).
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr"`

	// CORSOrigins are the origins allowed by the CORS policy.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins,omitempty"`

	// TLS configures HTTPS for the API endpoint.
	TLS TLSSection `koanf:"tls" json:"tls,omitempty"`
}

// TLSSection configures TLS for the API endpoint. When enabled without
// certificate files, a self-signed certificate is generated under the XDG
// state directory.
type TLSSection struct {
	Enabled  bool   `koanf:"enabled" json:"enabled,omitempty"`
	CertFile string `koanf:"cert_file" json:"cert_file,omitempty"`
	KeyFile  string `koanf:"key_file" json:"key_file,omitempty"`
}

// DatabaseSection configures the relational store.
type DatabaseSection struct {
	// URL is the PostgreSQL connection string.
	URL string `koanf:"url" json:"url"`
}

// Cache backends.
const (
	CacheBackendBadger   = "badger"
	CacheBackendMemory   = "memory"
	CacheBackendDisabled = "disabled"
)

// CacheSection configures the cache-aside layer.
type CacheSection struct {
	// Backend selects the cache implementation: badger, memory, or
	// disabled. A disabled cache serves every read from the store.
	Backend string `koanf:"backend" json:"backend"`

	// Dir is the badger data directory. Empty means the XDG data dir.
	Dir string `koanf:"dir" json:"dir,omitempty"`

	// MemorySize bounds the memory backend's entry count.
	MemorySize int `koanf:"memory_size" json:"memory_size,omitempty"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}
