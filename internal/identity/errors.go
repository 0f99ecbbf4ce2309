// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import "errors"

// ErrNotFound is returned when a requested user does not exist. It is a
// normal outcome, distinguishable from a data-access failure.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing
// username or email.
var ErrDuplicate = errors.New("duplicate")
