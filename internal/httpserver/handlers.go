// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/auth"
	"github.com/stackgate/stackgate/internal/geoip"
	"github.com/stackgate/stackgate/pkg/errutil"
)

// loginRequest is the POST /api/login body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionView is the JSON shape of a session in the device-management list.
type sessionView struct {
	ID        string       `json:"id"`
	Context   string       `json:"context"`
	IPAddress string       `json:"ip_address,omitempty"`
	Browser   string       `json:"browser,omitempty"`
	OS        string       `json:"os,omitempty"`
	Geo       geoip.Record `json:"geo,omitzero"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	RevokedAt *time.Time   `json:"revoked_at,omitempty"`
	Active    bool         `json:"active"`
	Current   bool         `json:"current"`
}

func newSessionView(session *auth.Session, currentID ulid.ULID) sessionView {
	return sessionView{
		ID:        session.ID.String(),
		Context:   session.Context,
		IPAddress: session.Meta.IPAddress,
		Browser:   session.Meta.Browser,
		OS:        session.Meta.OS,
		Geo:       session.Meta.Geo,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		RevokedAt: session.RevokedAt,
		Active:    session.IsActive(),
		Current:   session.ID.Compare(currentID) == 0,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rc := NewRequestContext(w, r)
	session, _, err := s.authn.Login(r.Context(), rc, req.Email, req.Password)
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_INVALID_CREDENTIALS":
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		case "AUTH_ACCOUNT_LOCKED":
			writeError(w, http.StatusForbidden, "account is temporarily locked")
		case "AUTH_ACCOUNT_SUSPENDED":
			writeError(w, http.StatusForbidden, "account is suspended")
		default:
			errutil.LogError(s.logger, "login failed", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": newSessionView(session, session.ID),
	})
}

// handleLogout revokes the caller's session. It deliberately does not
// require one: logging out without a valid session succeeds and reveals
// nothing.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rc := NewRequestContext(w, r)
	if err := s.authn.Logout(r.Context(), rc); err != nil {
		errutil.LogError(s.logger, "logout failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": session.UserID.String(),
		"session": newSessionView(session, session.ID),
	})
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	routes, err := s.gate.NavigableRoutes(r.Context(), session.UserID)
	if err != nil {
		errutil.LogError(s.logger, "navigation resolution failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if routes == nil {
		routes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sessions, err := s.sessions.ListSessions(r.Context(), session.UserID)
	if err != nil {
		errutil.LogError(s.logger, "session list failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, newSessionView(sess, session.ID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// handleRevokeSession revokes one of the caller's sessions by ID. Revoking
// the current session signals logout so the client can drop local state.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := ulid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	// Users manage their own devices here; revoking someone else's session
	// is an organization-scope operation and doesn't belong on this route.
	if !s.ownsSession(r, session.UserID, id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	rc := NewRequestContext(w, r)
	logout, err := s.sessions.RevokeSession(r.Context(), rc, id)
	if err != nil {
		errutil.LogError(s.logger, "session revocation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"logout": logout})
}

func (s *Server) handleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rc := NewRequestContext(w, r)
	revoked, err := s.sessions.RevokeOtherSessions(r.Context(), rc, session.UserID)
	if err != nil {
		errutil.LogError(s.logger, "bulk revocation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": revoked})
}

// handleAdminRevokeSession revokes any session by ID, without an ownership
// check. The permission middleware has already established organization-scope
// session management rights.
func (s *Server) handleAdminRevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	rc := NewRequestContext(w, r)
	logout, err := s.sessions.RevokeSession(r.Context(), rc, id)
	if err != nil {
		errutil.LogError(s.logger, "admin session revocation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"logout": logout})
}

// handlePageProbe answers route-table checks. Reaching it means RouteGuard
// granted the path.
func (s *Server) handlePageProbe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"granted": true})
}

// ownsSession reports whether the target session belongs to the caller.
func (s *Server) ownsSession(r *http.Request, userID, sessionID ulid.ULID) bool {
	sessions, err := s.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		errutil.LogWarn(s.logger, "session ownership check failed", err)
		return false
	}
	for _, sess := range sessions {
		if sess.ID.Compare(sessionID) == 0 {
			return true
		}
	}
	return false
}

// decodeJSON decodes a request body, rejecting unknown fields and trailing
// garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return oops.Errorf("unexpected data after JSON body")
	}
	return nil
}
