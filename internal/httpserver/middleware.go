// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stackgate/stackgate/internal/access"
	"github.com/stackgate/stackgate/internal/auth"
	"github.com/stackgate/stackgate/pkg/errutil"
)

// sessionKey is the context key for the authenticated session.
type sessionKey struct{}

// SessionFromContext returns the authenticated session attached by
// RequireSession.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*auth.Session)
	return session, ok
}

// RequireSession authenticates the request against the session store and
// attaches the session to the request context. Requests without a valid
// session get 401; the response never distinguishes missing, tampered,
// expired, and revoked.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := NewRequestContext(w, r)

		session, err := s.sessions.ReadSession(r.Context(), rc)
		if err != nil {
			if errors.Is(err, auth.ErrNoSession) {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			errutil.LogError(s.logger, "session read failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermissions gates a handler on the caller holding every listed
// permission key (logical AND). Denial is 403 with no detail about which
// key was missing. Must run inside RequireSession.
func (s *Server) RequirePermissions(required ...access.Key) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			decision, err := s.gate.Authorize(r.Context(), session.UserID, required...)
			if err != nil {
				errutil.LogError(s.logger, "authorization failed", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !decision.Granted {
				writeError(w, http.StatusForbidden, "permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RouteGuard gates a request path against the route table: undeclared paths
// and paths whose keys don't intersect the caller's permission set are both
// 403. Must run inside RequireSession.
func (s *Server) RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		decision, err := s.gate.AuthorizeRoute(r.Context(), session.UserID, r.URL.Path)
		if err != nil {
			errutil.LogError(s.logger, "route authorization failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !decision.Granted {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Renew slides the session expiry before the handler runs, so the refreshed
// cookie goes out with the response headers. Renewal is best effort: a store
// hiccup must not fail the request it piggybacks on.
func (s *Server) Renew(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := NewRequestContext(w, r)
		if err := s.sessions.UpdateSession(r.Context(), rc, time.Time{}); err != nil {
			errutil.LogWarn(s.logger, "session renewal failed", err)
		}

		next.ServeHTTP(w, r)
	})
}
