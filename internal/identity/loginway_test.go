// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionforge/sessionforge/internal/identity"
	"github.com/sessionforge/sessionforge/pkg/errutil"
)

func TestParseLoginWay(t *testing.T) {
	tests := []struct {
		in   string
		want identity.LoginWay
	}{
		{"username", identity.LoginWayUsername},
		{"email", identity.LoginWayEmail},
		{"id", identity.LoginWayID},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			way, err := identity.ParseLoginWay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, way)
			assert.Equal(t, tt.in, way.String())
		})
	}
}

func TestParseLoginWay_Unknown(t *testing.T) {
	for _, in := range []string{"", "Username", "phone", "ID"} {
		t.Run("rejects "+in, func(t *testing.T) {
			_, err := identity.ParseLoginWay(in)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "VALIDATION_LOGIN_WAY")
		})
	}
}

func TestAttribute_String(t *testing.T) {
	assert.Equal(t, "username", identity.AttributeUsername.String())
	assert.Equal(t, "email", identity.AttributeEmail.String())
}
