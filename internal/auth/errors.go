// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSession is the collapsed authentication-absence outcome: missing
// cookie, malformed or tampered token, expired token, and inactive store
// record are all indistinguishable behind it.
var ErrNoSession = errors.New("no session")
