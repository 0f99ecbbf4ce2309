// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package identity

import "github.com/samber/oops"

// LoginWay is the closed set of identifier kinds a login request may carry.
type LoginWay int

// Supported login ways.
const (
	LoginWayUsername LoginWay = iota
	LoginWayEmail
	LoginWayID
)

// ParseLoginWay maps the wire value of a login request to a LoginWay.
func ParseLoginWay(s string) (LoginWay, error) {
	switch s {
	case "username":
		return LoginWayUsername, nil
	case "email":
		return LoginWayEmail, nil
	case "id":
		return LoginWayID, nil
	default:
		return 0, oops.Code("VALIDATION_LOGIN_WAY").
			With("login_way", s).
			Errorf("unknown login way %q", s)
	}
}

// String returns the wire name of the login way.
func (w LoginWay) String() string {
	switch w {
	case LoginWayUsername:
		return "username"
	case LoginWayEmail:
		return "email"
	case LoginWayID:
		return "id"
	default:
		return "unknown"
	}
}

// Attribute is the closed set of user attributes the resolver can look up.
// The id attribute is deliberately absent: an id needs no resolution.
type Attribute int

// Resolvable attributes.
const (
	AttributeUsername Attribute = iota
	AttributeEmail
)

// String returns the attribute name used in cache keys and store columns.
func (a Attribute) String() string {
	switch a {
	case AttributeUsername:
		return "username"
	case AttributeEmail:
		return "email"
	default:
		return "unknown"
	}
}
