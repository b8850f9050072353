// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/stackgate/stackgate/internal/access"
	accessmocks "github.com/stackgate/stackgate/internal/access/mocks"
	"github.com/stackgate/stackgate/internal/auth"
	authmocks "github.com/stackgate/stackgate/internal/auth/mocks"
	"github.com/stackgate/stackgate/internal/geoip"
	"github.com/stackgate/stackgate/internal/httpserver"
)

// testSecret is a 32-byte signing secret for token tests.
const testSecret = "0123456789abcdef0123456789abcdef"

// fixture wires a real server over mocked persistence. Tokens and cookies go
// through the real codec so request flows match production end to end.
type fixture struct {
	store   *authmocks.MockSessionStore
	users   *authmocks.MockUserRepository
	hasher  *authmocks.MockPasswordHasher
	roles   *accessmocks.MockRoleSource
	codec   *auth.TokenCodec
	server  *httpserver.Server
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.Default()
	store := authmocks.NewMockSessionStore(t)
	users := authmocks.NewMockUserRepository(t)
	hasher := authmocks.NewMockPasswordHasher(t)
	roles := accessmocks.NewMockRoleSource(t)

	codec, err := auth.NewTokenCodec(testSecret)
	require.NoError(t, err)

	svc, err := auth.NewService(store, users, codec, geoip.Disabled{}, auth.ServiceConfig{}, logger)
	require.NoError(t, err)

	authn, err := auth.NewAuthenticator(users, svc, hasher)
	require.NoError(t, err)

	resolver, err := access.NewResolver(roles, logger)
	require.NoError(t, err)

	routes, err := access.NewRouteTable(access.DefaultRoutes())
	require.NoError(t, err)

	gate, err := access.NewGate(resolver, routes)
	require.NoError(t, err)

	server, err := httpserver.NewServer("127.0.0.1:0", svc, authn, gate, logger)
	require.NoError(t, err)

	return &fixture{
		store:   store,
		users:   users,
		hasher:  hasher,
		roles:   roles,
		codec:   codec,
		server:  server,
		handler: server.Handler(),
	}
}

// do dispatches a request through the full route tree.
func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// sessionCookie issues a real signed token for the session and wraps it in
// the transport cookie.
func (f *fixture) sessionCookie(t *testing.T, session *auth.Session) *http.Cookie {
	t.Helper()
	token, err := f.codec.Issue(session.ID, session.ExpiresAt)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.DefaultCookieName, Value: token}
}

// activeSession builds a session that expires an hour from now.
func activeSession(t *testing.T, userID ulid.ULID) *auth.Session {
	t.Helper()
	session, err := auth.NewSession(userID, auth.ContextLogin, auth.RequestMeta{
		IPAddress: "203.0.113.7",
		Browser:   "Chrome",
		OS:        "Windows",
	}, nil, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return session
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody unmarshals the recorded response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

// responseCookie returns the last Set-Cookie with the given name; when the
// renewal middleware and a handler both write the session cookie, the last
// one is what the client keeps.
func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			found = cookie
		}
	}
	return found
}
