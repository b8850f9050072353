// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package org

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/access"
)

// Role is a named permission bundle scoped to one organization. Its
// permission set is always a subset of the catalog; unknown keys are rejected
// at construction, never silently dropped.
type Role struct {
	ID             ulid.ULID
	OrganizationID ulid.ULID
	Name           string
	Permissions    []access.Permission
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRole creates a validated Role instance. Duplicate keys are collapsed;
// a key outside the catalog fails the whole construction.
func NewRole(organizationID ulid.ULID, name string, keys []access.Key) (*Role, error) {
	if organizationID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("ROLE_INVALID_ORG").Errorf("organization ID cannot be zero")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.Code("ROLE_INVALID_NAME").Errorf("role name cannot be empty")
	}

	permissions, err := resolveKeys(keys)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Role{
		ID:             ulid.Make(),
		OrganizationID: organizationID,
		Name:           name,
		Permissions:    permissions,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SetPermissions replaces the role's permission set, enforcing the same
// catalog-subset rule as construction.
func (r *Role) SetPermissions(keys []access.Key) error {
	permissions, err := resolveKeys(keys)
	if err != nil {
		return err
	}
	r.Permissions = permissions
	r.UpdatedAt = time.Now()
	return nil
}

// Keys returns the canonical keys of the role's permissions.
func (r *Role) Keys() []access.Key {
	keys := make([]access.Key, len(r.Permissions))
	for i, p := range r.Permissions {
		keys[i] = p.Key()
	}
	return keys
}

// resolveKeys maps keys to canonical catalog permissions, deduplicating and
// rejecting anything outside the catalog.
func resolveKeys(keys []access.Key) ([]access.Permission, error) {
	seen := make(map[access.Key]struct{}, len(keys))
	permissions := make([]access.Permission, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		permission, ok := access.Lookup(key)
		if !ok {
			return nil, oops.Code("ROLE_UNKNOWN_PERMISSION").
				With("key", string(key)).
				Errorf("permission key is not in the catalog")
		}
		seen[key] = struct{}{}
		permissions = append(permissions, permission)
	}
	return permissions, nil
}

// RoleRepository manages role persistence and user assignment.
type RoleRepository interface {
	// Create stores a new role and its permission set.
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role, permissions included.
	GetByID(ctx context.Context, id ulid.ULID) (*Role, error)

	// ListByOrganization retrieves all roles of an organization, permissions
	// included, ordered by name.
	ListByOrganization(ctx context.Context, organizationID ulid.ULID) ([]*Role, error)

	// Update replaces a role's name and permission set.
	Update(ctx context.Context, role *Role) error

	// Delete removes a role and, via schema cascade, its assignments.
	Delete(ctx context.Context, id ulid.ULID) error

	// AssignToUser grants the role to a user. Idempotent: assigning an
	// already-held role succeeds.
	AssignToUser(ctx context.Context, roleID, userID ulid.ULID) error

	// UnassignFromUser removes the role from a user. Idempotent.
	UnassignFromUser(ctx context.Context, roleID, userID ulid.ULID) error
}
