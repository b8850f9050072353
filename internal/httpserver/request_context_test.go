// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgate/stackgate/internal/httpserver"
)

func TestRequestContext_Cookie(t *testing.T) {
	t.Run("returns a present cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "stackgate_session", Value: "token-value"})

		rc := httpserver.NewRequestContext(httptest.NewRecorder(), req)
		value, ok := rc.Cookie("stackgate_session")
		require.True(t, ok)
		assert.Equal(t, "token-value", value)
	})

	t.Run("reports absence", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		rc := httpserver.NewRequestContext(httptest.NewRecorder(), req)
		_, ok := rc.Cookie("stackgate_session")
		assert.False(t, ok)
	})

	t.Run("treats an empty value as absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Cookie", "stackgate_session=")

		rc := httpserver.NewRequestContext(httptest.NewRecorder(), req)
		_, ok := rc.Cookie("stackgate_session")
		assert.False(t, ok)
	})
}

func TestRequestContext_SetCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	rc := httpserver.NewRequestContext(w, req)
	rc.SetCookie(&http.Cookie{Name: "stackgate_session", Value: "fresh", Path: "/"})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "stackgate_session", cookies[0].Name)
	assert.Equal(t, "fresh", cookies[0].Value)
}

func TestRequestContext_ClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "socket peer without proxy",
			remoteAddr: "198.51.100.4:52011",
			want:       "198.51.100.4",
		},
		{
			name:       "leftmost forwarded entry wins",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.7, 10.0.0.1",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded entry is trimmed",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "  203.0.113.7  ",
			want:       "203.0.113.7",
		},
		{
			name:       "blank forwarded header falls back to peer",
			remoteAddr: "198.51.100.4:52011",
			forwarded:  "   ",
			want:       "198.51.100.4",
		},
		{
			name:       "unparsable peer address passes through",
			remoteAddr: "unix-socket",
			want:       "unix-socket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			rc := httpserver.NewRequestContext(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, rc.ClientIP())
		})
	}
}

func TestRequestContext_UserAgent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "curl/8.5.0")

	rc := httpserver.NewRequestContext(httptest.NewRecorder(), req)
	assert.Equal(t, "curl/8.5.0", rc.UserAgent())
}
