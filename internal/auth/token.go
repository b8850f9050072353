// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// tokenIssuer identifies tokens minted by this service.
const tokenIssuer = "stackgate"

// minSecretBytes is the minimum length of the HS256 signing secret.
const minSecretBytes = 32

// TokenCodec signs and verifies compact, time-bound session tokens. The
// payload carries only the session ID and expiry; the session store remains
// the source of truth for validity.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec creates a TokenCodec from the process-wide signing secret.
// The secret is a boot-time invariant: an absent or short secret fails
// construction, and the process must not start without one.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if len(secret) < minSecretBytes {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_bytes", minSecretBytes).
			Errorf("session signing secret is missing or too short")
	}
	return &TokenCodec{secret: []byte(secret)}, nil
}

// Issue produces a signed HS256 token naming the session and its expiry.
func (c *TokenCodec) Issue(sessionID ulid.ULID, expiresAt time.Time) (string, error) {
	if sessionID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("TOKEN_INVALID_SESSION").Errorf("session ID cannot be zero")
	}
	if expiresAt.IsZero() {
		return "", oops.Code("TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the embedded
// session ID. Malformed input, a bad signature, and an expired timestamp all
// fold into the single (zero, false) outcome so callers cannot distinguish
// which failure occurred.
func (c *TokenCodec) Verify(token string) (ulid.ULID, bool) {
	if token == "" {
		return ulid.ULID{}, false
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, oops.Errorf("unexpected signing method")
		}
		return c.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ulid.ULID{}, false
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return ulid.ULID{}, false
	}

	sessionID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, false
	}
	return sessionID, true
}
