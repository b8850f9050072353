// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package httpserver is the HTTP surface of StackGate: cookie transport,
// session middleware, and the JSON API for login, session management, and
// navigation. It owns the translation between net/http and the transport
// abstraction the auth service works against.
package httpserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/stackgate/stackgate/internal/auth"
)

// requestContext adapts one request/response pair to auth.RequestContext.
// The auth service reads cookies from the request and writes them to the
// response without knowing about net/http.
type requestContext struct {
	w http.ResponseWriter
	r *http.Request
}

// NewRequestContext wraps a response/request pair for the auth service.
func NewRequestContext(w http.ResponseWriter, r *http.Request) auth.RequestContext {
	return &requestContext{w: w, r: r}
}

func (rc *requestContext) Cookie(name string) (string, bool) {
	cookie, err := rc.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (rc *requestContext) SetCookie(cookie *http.Cookie) {
	http.SetCookie(rc.w, cookie)
}

// ClientIP returns the originating client address. The leftmost
// X-Forwarded-For entry wins when a proxy set one; otherwise the socket
// peer address is used.
func (rc *requestContext) ClientIP() string {
	if fwd := rc.r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(rc.r.RemoteAddr)
	if err != nil {
		return rc.r.RemoteAddr
	}
	return host
}

func (rc *requestContext) UserAgent() string {
	return rc.r.UserAgent()
}
