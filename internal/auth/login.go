// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticator performs password authentication and turns a successful
// check into a session via the lifecycle Service.
type Authenticator struct {
	users    UserRepository
	sessions *Service
	hasher   PasswordHasher
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserRepository, sessions *Service, hasher PasswordHasher) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("session service is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("password hasher is required")
	}
	return &Authenticator{users: users, sessions: sessions, hasher: hasher}, nil
}

// Login authenticates a user by email and password and creates a session.
// Returns the session, plaintext token, and any error.
// Uses constant-time operations to prevent timing-based account enumeration.
func (a *Authenticator) Login(ctx context.Context, rc RequestContext, email, password string) (*Session, string, error) {
	user, lookupErr := a.users.GetByEmail(ctx, email)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			userExists = false
		} else {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify password (constant-time operation for timing attack prevention)
	valid, verifyErr := a.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists {
			recordLoginFailure("invalid_credentials")
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// If user doesn't exist OR password invalid, return same error
	if !userExists || !valid {
		if userExists {
			// Record failure only for existing users
			user.RecordFailure()
			_ = a.users.Update(ctx, user) //nolint:errcheck // Best effort
		}
		recordLoginFailure("invalid_credentials")
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	// Check lockout AFTER password verification to maintain constant time
	if user.IsLocked() {
		recordLoginFailure("locked")
		return nil, "", oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	// Suspension is an explicit gating signal, distinct from bad credentials
	if user.Suspended {
		recordLoginFailure("suspended")
		return nil, "", oops.Code("AUTH_ACCOUNT_SUSPENDED").Errorf("account is suspended")
	}

	// Success - reset failure counter
	user.RecordSuccess()

	// Check if password needs upgrade (e.g., from bcrypt to argon2id)
	if a.hasher.NeedsUpgrade(user.PasswordHash) {
		newHash, hashErr := a.hasher.Hash(password)
		if hashErr == nil {
			user.PasswordHash = newHash
		}
	}

	// Update user with reset failure count (and possibly upgraded hash)
	// Ignore errors - login should succeed even if update fails
	_ = a.users.Update(ctx, user) //nolint:errcheck // Best effort, login succeeds regardless

	session, token, err := a.sessions.CreateSession(ctx, rc, user.ID, ContextLogin, nil, time.Time{})
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	return session, token, nil
}

// Logout revokes the caller's current session. A request with no valid
// session is a no-op, indistinguishable from a successful logout.
func (a *Authenticator) Logout(ctx context.Context, rc RequestContext) error {
	return a.sessions.RevokeCurrentSession(ctx, rc)
}
