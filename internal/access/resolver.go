// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RoleSource loads the flattened permission tuples granted to a user across
// all of their roles. Implementations query the data store.
type RoleSource interface {
	// PermissionsForUser returns every permission tuple assigned to the
	// user through any role. A user with no roles yields an empty slice,
	// not an error. Duplicates across roles are allowed; the resolver
	// deduplicates.
	PermissionsForUser(ctx context.Context, userID ulid.ULID) ([]Permission, error)
}

// Resolver computes a user's effective permission set: the union of the
// permissions of every role assigned to the user.
type Resolver struct {
	roles  RoleSource
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(roles RoleSource, logger *slog.Logger) (*Resolver, error) {
	if roles == nil {
		return nil, oops.In("access").Code("RESOLVER_INVALID").Errorf("role source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{roles: roles, logger: logger}, nil
}

// Resolve returns the user's effective permission-key set. An empty role set
// resolves to an empty set, never an error. Tuples not present in the catalog
// are dropped with a warning (fail-closed: a dangling grant confers nothing).
func (r *Resolver) Resolve(ctx context.Context, userID ulid.ULID) (Set, error) {
	start := time.Now()

	perms, err := r.roles.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, oops.In("access").
			Code("RESOLVE_FAILED").
			With("operation", "load permissions for user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	set := make(Set, len(perms))
	for _, p := range perms {
		key := p.Key()
		if !ValidKey(key) {
			r.logger.Warn("dropping permission not in catalog",
				"user_id", userID.String(),
				"key", string(key))
			continue
		}
		set[key] = struct{}{}
	}

	observeResolveDuration(time.Since(start))
	return set, nil
}
