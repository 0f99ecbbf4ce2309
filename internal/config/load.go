// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix of environment variable overrides. Sections are
// separated by a double underscore so key names may contain single
// underscores, e.g. SESSIONFORGE_SERVER__METRICS_ADDR maps to
// server.metrics_addr.
const envPrefix = "SESSIONFORGE_"

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file at path (validated against the config schema), environment
// variables, and command-line flags. An empty path skips the file layer;
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied configuration
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(raw); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransformer maps SESSIONFORGE_DATABASE__URL to database.url.
func envTransformer(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
