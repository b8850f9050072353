// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import "net/http"

// RequestContext is the explicit per-request transport state the session
// lifecycle operates on: cookie read/write plus the client metadata used for
// enrichment. Handlers construct one from their framework's request and
// response values so the lifecycle never reaches into ambient framework
// state.
type RequestContext interface {
	// Cookie returns the named cookie value, if present.
	Cookie(name string) (string, bool)

	// SetCookie writes a cookie to the response.
	SetCookie(cookie *http.Cookie)

	// ClientIP returns the client address, or empty if unknown.
	ClientIP() string

	// UserAgent returns the User-Agent header, or empty.
	UserAgent() string
}
