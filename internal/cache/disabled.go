// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package cache

import (
	"context"
	"time"
)

// Disabled implements Cache as a no-op for deployments that run without a
// cache backend. Every read is a miss and every write is silently dropped;
// callers fall through to the relational store on each lookup.
type Disabled struct{}

// NewDisabled creates a Disabled cache.
func NewDisabled() Disabled {
	return Disabled{}
}

// Get always reports a miss.
func (Disabled) Get(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// Set drops the write.
func (Disabled) Set(context.Context, string, string, time.Duration) error {
	return nil
}

// Expire is a no-op.
func (Disabled) Expire(context.Context, string, time.Duration) error {
	return nil
}

// Delete is a no-op.
func (Disabled) Delete(context.Context, string) error {
	return nil
}

// Close is a no-op.
func (Disabled) Close() error {
	return nil
}

// Compile-time interface check.
var _ Cache = Disabled{}
