// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package postgres implements auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/auth"
	"github.com/stackgate/stackgate/internal/geoip"
)

// sessionColumns is the column list shared by all session queries.
const sessionColumns = `id, user_id, context, ip_address, user_agent, browser, os,
	geo_hostname, geo_city, geo_region, geo_country, geo_loc, geo_org, geo_postal, geo_timezone,
	metadata, expires_at, created_at, revoked_at`

// SessionStore implements auth.SessionStore using PostgreSQL.
//
// Revocation is monotonic: revoked_at is set at most once and never unset,
// so a revoke racing a read observes either pre- or post-revoke state but
// never a corrupted one.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create stores a new session.
func (r *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.Context,
		session.Meta.IPAddress,
		session.Meta.UserAgent,
		session.Meta.Browser,
		session.Meta.OS,
		session.Meta.Geo.Hostname,
		session.Meta.Geo.City,
		session.Meta.Geo.Region,
		session.Meta.Geo.Country,
		session.Meta.Geo.Loc,
		session.Meta.Geo.Org,
		session.Meta.Geo.Postal,
		session.Meta.Geo.Timezone,
		session.Metadata,
		session.ExpiresAt,
		session.CreatedAt,
		session.RevokedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// FindActive retrieves a session by ID iff it is neither revoked nor
// expired. Absent, revoked, and expired sessions all surface as
// auth.ErrNotFound: the validity predicate lives in the query.
func (r *SessionStore) FindActive(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2
	`, id.String(), time.Now())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_FIND_ACTIVE_FAILED").
			With("operation", "find active session").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// FindByUser retrieves all sessions for a user, newest first.
func (r *SessionStore) FindByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("SESSION_FIND_BY_USER_FAILED").
			With("operation", "find sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}

	return sessions, nil
}

// UpdateExpiry sets a new expiry time for a session.
func (r *SessionStore) UpdateExpiry(ctx context.Context, id ulid.ULID, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id.String(), expiresAt)
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").
			With("operation", "update expires_at").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Revoke marks a session revoked. Idempotent: an already-revoked session
// keeps its earlier revocation timestamp and the call succeeds.
func (r *SessionStore) Revoke(ctx context.Context, id ulid.ULID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id.String(), at)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "set revoked_at").
			With("id", id.String()).
			Wrap(err)
	}
	// Zero rows affected means the session was absent or already revoked;
	// both are valid end states for an idempotent revoke.
	return nil
}

// DeleteExpired physically removes expired sessions and returns the count.
func (r *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		userIDStr string
		sctx      string
		meta      auth.RequestMeta
		geo       geoip.Record
		metadata  map[string]any
		expiresAt time.Time
		createdAt time.Time
		revokedAt *time.Time
	)

	err := row.Scan(
		&idStr, &userIDStr, &sctx,
		&meta.IPAddress, &meta.UserAgent, &meta.Browser, &meta.OS,
		&geo.Hostname, &geo.City, &geo.Region, &geo.Country, &geo.Loc, &geo.Org, &geo.Postal, &geo.Timezone,
		&metadata, &expiresAt, &createdAt, &revokedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	meta.Geo = geo
	return &auth.Session{
		ID:        id,
		UserID:    userID,
		Context:   sctx,
		Meta:      meta,
		Metadata:  metadata,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
