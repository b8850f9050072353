// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package access provides attribute-based authorization for StackGate.
//
// Permissions are immutable (action, scope, entity) tuples drawn from a
// closed catalog. Each tuple projects to a canonical string key of the form
// "action:scope:entity". Keys are opaque comparison atoms everywhere outside
// this package: they are never parsed back into tuples at call sites.
package access

import "github.com/samber/oops"

// Action is the operation half of a permission tuple.
type Action string

// Catalog actions.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Scope is the breadth of a permission: own (self only), organization
// (any record in the caller's organization), or granted (binary flag-like
// access, e.g. dashboard visibility).
type Scope string

// Catalog scopes.
const (
	ScopeOwn          Scope = "own"
	ScopeOrganization Scope = "organization"
	ScopeGranted      Scope = "granted"
)

// Entity is the protected resource type a permission applies to.
type Entity string

// Catalog entities.
const (
	EntityUser         Entity = "user"
	EntityOrganization Entity = "organization"
	EntityAvatar       Entity = "avatar"
	EntityRole         Entity = "role"
	EntitySession      Entity = "session"
	EntityDashboard    Entity = "dashboard"
	EntityBilling      Entity = "billing"
)

// Key is the canonical string identifier of one permission tuple.
type Key string

// Permission is an immutable (action, scope, entity) tuple.
type Permission struct {
	Action Action
	Scope  Scope
	Entity Entity
}

// Key returns the canonical key for the tuple: "action:scope:entity".
// The join is deterministic and injective because the tuple parts never
// contain the separator.
func (p Permission) Key() Key {
	return Key(string(p.Action) + ":" + string(p.Scope) + ":" + string(p.Entity))
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p.Key())
}

// NewPermission validates a tuple against the catalog and returns the
// canonical instance. Tuples outside the catalog are rejected.
func NewPermission(action Action, scope Scope, entity Entity) (Permission, error) {
	p := Permission{Action: action, Scope: scope, Entity: entity}
	canonical, ok := Lookup(p.Key())
	if !ok {
		return Permission{}, oops.In("access").
			Code("PERMISSION_UNKNOWN").
			With("key", string(p.Key())).
			Errorf("permission tuple is not in the catalog")
	}
	return canonical, nil
}
