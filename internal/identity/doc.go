// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package identity resolves user-supplied identifiers to canonical user ids,
// verifies credentials, and validates new-account registration. All lookups
// are cache-aside in front of the relational store; the cache is never the
// source of truth.
package identity
