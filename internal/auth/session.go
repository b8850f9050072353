// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/geoip"
)

// DefaultSessionTTL is the default session lifetime.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Session context labels name the authentication event that created the
// session.
const (
	ContextLogin  = "login"
	ContextSignup = "signup"
	ContextOAuth  = "oauth"
)

// RequestMeta is the request-context snapshot captured at session creation.
// Every field is optional; enrichment failures leave fields empty.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Browser   string
	OS        string
	Geo       geoip.Record
}

// Session represents one authenticated browser/device context. The row in
// the session store is the source of truth for validity; tokens only name it.
// Sessions are never physically deleted by the lifecycle: revocation sets
// RevokedAt and the record stays for audit until swept.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Context   string
	Meta      RequestMeta
	Metadata  map[string]any
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewSession creates a validated Session instance.
// Metadata is optional and may be nil.
func NewSession(userID ulid.ULID, sessionContext string, meta RequestMeta, metadata map[string]any, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if sessionContext == "" {
		return nil, oops.Code("SESSION_INVALID_CONTEXT").Errorf("session context cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		Context:   sessionContext,
		Meta:      meta,
		Metadata:  metadata,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsActive returns true if the session is neither revoked nor expired.
func (s *Session) IsActive() bool {
	return s.IsActiveAt(time.Now())
}

// IsActiveAt returns true if the session would be active at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsActiveAt(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}

// SessionStore manages session persistence.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// FindActive retrieves a session by ID iff it is active. Absent,
	// revoked, and expired sessions all surface as ErrNotFound so callers
	// never re-check the validity predicate.
	FindActive(ctx context.Context, id ulid.ULID) (*Session, error)

	// FindByUser retrieves all sessions for a user, newest first,
	// including revoked and expired ones.
	FindByUser(ctx context.Context, userID ulid.ULID) ([]*Session, error)

	// UpdateExpiry sets a new expiry time for a session.
	UpdateExpiry(ctx context.Context, id ulid.ULID, expiresAt time.Time) error

	// Revoke marks a session revoked at the given time. Idempotent:
	// revoking an already-revoked session keeps the earlier timestamp and
	// is not an error.
	Revoke(ctx context.Context, id ulid.ULID, at time.Time) error

	// DeleteExpired physically removes sessions whose expiry has passed
	// and returns the count of deleted records. Used by the sweeper, not
	// the lifecycle.
	DeleteExpired(ctx context.Context) (int64, error)
}
