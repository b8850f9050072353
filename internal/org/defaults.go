// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package org

import (
	"github.com/oklog/ulid/v2"

	"github.com/stackgate/stackgate/internal/access"
)

// Default role names created for every new organization.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// DefaultRoles returns the bootstrap roles for an organization. Owner holds
// the full catalog; admin manages people and sessions but not billing or the
// organization's existence; member holds only self-scoped permissions plus
// dashboard access.
func DefaultRoles(organizationID ulid.ULID) ([]*Role, error) {
	var ownerKeys []access.Key
	for _, p := range access.Catalog() {
		ownerKeys = append(ownerKeys, p.Key())
	}

	var adminKeys []access.Key
	for _, p := range access.Catalog() {
		if p.Entity == access.EntityBilling {
			continue
		}
		if p.Entity == access.EntityOrganization && p.Action == access.ActionDelete {
			continue
		}
		adminKeys = append(adminKeys, p.Key())
	}

	var memberKeys []access.Key
	for _, p := range access.Catalog() {
		if p.Scope == access.ScopeOwn {
			memberKeys = append(memberKeys, p.Key())
		}
	}
	memberKeys = append(memberKeys,
		access.Permission{Action: access.ActionRead, Scope: access.ScopeGranted, Entity: access.EntityDashboard}.Key(),
	)

	specs := []struct {
		name string
		keys []access.Key
	}{
		{RoleOwner, ownerKeys},
		{RoleAdmin, adminKeys},
		{RoleMember, memberKeys},
	}

	roles := make([]*Role, 0, len(specs))
	for _, spec := range specs {
		role, err := NewRole(organizationID, spec.name, spec.keys)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}
