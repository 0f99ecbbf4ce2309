// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

// Package httpserver exposes the identity and token operations over HTTP.
//
// Responses use a JSON envelope {code, message, data} where code mirrors
// the HTTP status, except registration which reports 204 in the body of a
// 201 response for compatibility with existing clients.
package httpserver
