// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth_test

import (
	"net/http"

	"github.com/stackgate/stackgate/internal/auth"
)

// testSecret is a 32-byte signing secret for token tests.
const testSecret = "0123456789abcdef0123456789abcdef"

// fakeRequestContext is an in-memory auth.RequestContext for tests. Cookies
// set via SetCookie become readable via Cookie, so multi-step flows behave
// like a browser following Set-Cookie headers.
type fakeRequestContext struct {
	cookies map[string]string
	written []*http.Cookie
	ip      string
	ua      string
}

func newFakeRequestContext() *fakeRequestContext {
	return &fakeRequestContext{
		cookies: make(map[string]string),
		ip:      "203.0.113.7",
		ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36",
	}
}

func (rc *fakeRequestContext) Cookie(name string) (string, bool) {
	value, ok := rc.cookies[name]
	return value, ok
}

func (rc *fakeRequestContext) SetCookie(cookie *http.Cookie) {
	rc.written = append(rc.written, cookie)
	if cookie.MaxAge < 0 || cookie.Value == "" {
		delete(rc.cookies, cookie.Name)
		return
	}
	rc.cookies[cookie.Name] = cookie.Value
}

func (rc *fakeRequestContext) ClientIP() string {
	return rc.ip
}

func (rc *fakeRequestContext) UserAgent() string {
	return rc.ua
}

// lastCookie returns the most recently written cookie, or nil.
func (rc *fakeRequestContext) lastCookie() *http.Cookie {
	if len(rc.written) == 0 {
		return nil
	}
	return rc.written[len(rc.written)-1]
}

var _ auth.RequestContext = (*fakeRequestContext)(nil)
