// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/geoip"
	"github.com/stackgate/stackgate/pkg/errutil"
)

// DefaultCookieName names the session transport cookie.
const DefaultCookieName = "stackgate_session"

// geoLookupTimeout bounds enrichment during session creation. A slow
// geolocation upstream delays a login by at most this much and can never
// fail it.
const geoLookupTimeout = 4 * time.Second

// ServiceConfig carries the tunable parts of the session lifecycle.
// Zero values fall back to defaults.
type ServiceConfig struct {
	CookieName string
	SessionTTL time.Duration
}

// Service orchestrates the session lifecycle: issuance with best-effort
// enrichment, cookie transport, sliding-expiry renewal, and revocation.
//
// A session has exactly one transition: ACTIVE to INVALID, via expiry or
// revocation. INVALID is terminal; a "new" session is always a distinct
// record.
type Service struct {
	sessions   SessionStore
	users      UserRepository
	codec      *TokenCodec
	geo        geoip.Lookup
	cookieName string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewService creates a session lifecycle Service.
func NewService(sessions SessionStore, users UserRepository, codec *TokenCodec, geo geoip.Lookup, cfg ServiceConfig, logger *slog.Logger) (*Service, error) {
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("session store is required")
	}
	if users == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("user repository is required")
	}
	if codec == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("token codec is required")
	}
	if geo == nil {
		geo = geoip.Disabled{}
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		sessions:   sessions,
		users:      users,
		codec:      codec,
		geo:        geo,
		cookieName: cfg.CookieName,
		ttl:        cfg.SessionTTL,
		logger:     logger,
	}, nil
}

// CookieName returns the name of the transport cookie.
func (s *Service) CookieName() string {
	return s.cookieName
}

// CreateSession records a new authenticated context for the user, touches
// the user's last-login markers, issues a signed token, and sets the
// transport cookie on rc.
//
// Enrichment (user-agent parsing, geolocation) is best effort: each field is
// individually optional and lookup failure only omits fields. The store
// write is the one load-bearing effect; its failure aborts the operation.
// expiresAt of zero means now + the configured TTL.
func (s *Service) CreateSession(ctx context.Context, rc RequestContext, userID ulid.ULID, sessionContext string, metadata map[string]any, expiresAt time.Time) (*Session, string, error) {
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.ttl)
	}

	meta := s.gatherMeta(ctx, rc)

	session, err := NewSession(userID, sessionContext, meta, metadata, expiresAt)
	if err != nil {
		// Construction failures carry their own validation codes.
		return nil, "", oops.With("operation", "construct session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	// Best effort: a failed marker update must not fail the login.
	if err := s.users.TouchLastLogin(ctx, userID, session.CreatedAt); err != nil {
		errutil.LogWarn(s.logger, "failed to touch last-login markers", err)
	}

	token, err := s.codec.Issue(session.ID, session.ExpiresAt)
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "issue token").
			With("session_id", session.ID.String()).
			Wrap(err)
	}

	rc.SetCookie(s.buildCookie(token, session.ExpiresAt))
	recordSessionCreated(sessionContext)

	return session, token, nil
}

// ReadSessionID reads the cookie and verifies the token, returning the
// embedded session ID. It never touches the store.
func (s *Service) ReadSessionID(rc RequestContext) (ulid.ULID, bool) {
	token, ok := rc.Cookie(s.cookieName)
	if !ok {
		return ulid.ULID{}, false
	}
	return s.codec.Verify(token)
}

// ReadSession is the primary authentication check: verify the token, then
// confirm the store record is active. All absence conditions collapse into
// ErrNoSession; only infrastructure failures surface as other errors.
func (s *Service) ReadSession(ctx context.Context, rc RequestContext) (*Session, error) {
	id, ok := s.ReadSessionID(rc)
	if !ok {
		return nil, ErrNoSession
	}

	session, err := s.sessions.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, oops.Code("SESSION_READ_FAILED").
			With("operation", "find active session").
			With("session_id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// UpdateSession renews the current session's expiry (sliding expiry) and
// re-issues the cookie. It is a no-op when no valid cookie/token pair
// exists or the session is no longer active.
func (s *Service) UpdateSession(ctx context.Context, rc RequestContext, expiresAt time.Time) error {
	id, ok := s.ReadSessionID(rc)
	if !ok {
		return nil
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.ttl)
	}

	if err := s.sessions.UpdateExpiry(ctx, id, expiresAt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update expiry").
			With("session_id", id.String()).
			Wrap(err)
	}

	token, err := s.codec.Issue(id, expiresAt)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "re-issue token").
			With("session_id", id.String()).
			Wrap(err)
	}
	rc.SetCookie(s.buildCookie(token, expiresAt))
	return nil
}

// RevokeCurrentSession revokes the session named by the request's own token
// and clears the cookie. A request without a valid token is a no-op.
func (s *Service) RevokeCurrentSession(ctx context.Context, rc RequestContext) error {
	id, ok := s.ReadSessionID(rc)
	if !ok {
		return nil
	}

	if err := s.sessions.Revoke(ctx, id, time.Now()); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke current session").
			With("session_id", id.String()).
			Wrap(err)
	}

	rc.SetCookie(s.expiredCookie())
	recordSessionRevoked("self")
	return nil
}

// RevokeSession revokes a session by ID (admin-initiated or "sign out other
// devices"). When the revoked ID matches the caller's own current session,
// the cookie is cleared and logout=true signals the caller to log out. The
// comparison uses the session ID resolved from the request's verified token
// at call time; a stale or absent cookie yields no logout signal.
func (s *Service) RevokeSession(ctx context.Context, rc RequestContext, id ulid.ULID) (logout bool, err error) {
	if err := s.sessions.Revoke(ctx, id, time.Now()); err != nil {
		return false, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session by id").
			With("session_id", id.String()).
			Wrap(err)
	}
	recordSessionRevoked("by_id")

	if currentID, ok := s.ReadSessionID(rc); ok && currentID.Compare(id) == 0 {
		rc.SetCookie(s.expiredCookie())
		return true, nil
	}
	return false, nil
}

// ListSessions returns all sessions for a user, newest first, including
// revoked and expired ones for the device-management view.
func (s *Service) ListSessions(ctx context.Context, userID ulid.ULID) ([]*Session, error) {
	sessions, err := s.sessions.FindByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return sessions, nil
}

// RevokeOtherSessions revokes every active session of the user except the
// caller's current one ("sign out other devices"). Returns the number of
// sessions revoked.
func (s *Service) RevokeOtherSessions(ctx context.Context, rc RequestContext, userID ulid.ULID) (int, error) {
	currentID, _ := s.ReadSessionID(rc)

	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, session := range sessions {
		if !session.IsActive() || session.ID.Compare(currentID) == 0 {
			continue
		}
		if err := s.sessions.Revoke(ctx, session.ID, time.Now()); err != nil {
			return revoked, oops.Code("SESSION_REVOKE_FAILED").
				With("operation", "revoke other sessions").
				With("session_id", session.ID.String()).
				Wrap(err)
		}
		recordSessionRevoked("bulk")
		revoked++
	}
	return revoked, nil
}

// gatherMeta captures the request snapshot. Geolocation gets a detached,
// bounded context so cancellation or slowness of the lookup cannot cancel
// session creation.
func (s *Service) gatherMeta(ctx context.Context, rc RequestContext) RequestMeta {
	meta := RequestMeta{
		IPAddress: rc.ClientIP(),
		UserAgent: rc.UserAgent(),
	}
	meta.Browser, meta.OS = ParseUserAgent(meta.UserAgent)

	if meta.IPAddress != "" {
		geoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), geoLookupTimeout)
		defer cancel()

		record, err := s.geo.Lookup(geoCtx, meta.IPAddress)
		if err != nil {
			errutil.LogWarn(s.logger, "geolocation enrichment failed", err)
		} else {
			meta.Geo = record
		}
	}
	return meta
}

// buildCookie returns the transport cookie for a token. The cookie expiry
// mirrors the session expiry.
func (s *Service) buildCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// expiredCookie returns a cookie that clears the session cookie.
func (s *Service) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
