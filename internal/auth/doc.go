// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package auth provides session authentication for StackGate.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with validated email and password hash
//   - NewSession - creates a Session with validated owner, context label, and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - session lifecycle: issuance, renewal, revocation, cookie transport
//   - Authenticator - password login, the authentication event that creates sessions
//
// Services are created with New* constructors that validate dependencies.
//
// # Tokens
//
// Session tokens are signed HS256 credentials naming a session id. The token
// is transport only: the session row in the store is the source of truth for
// validity, and every verification failure collapses into a single "no
// session" outcome.
package auth
