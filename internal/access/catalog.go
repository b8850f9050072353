// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

// The permission catalog. This is the single source of truth for every
// permission referenced anywhere in the system: role assignments, route
// gating, and seed data all validate against it. It is a closed enumeration,
// never edited at runtime.
var catalogTuples = []Permission{
	// Users
	{ActionCreate, ScopeOrganization, EntityUser},
	{ActionRead, ScopeOwn, EntityUser},
	{ActionRead, ScopeOrganization, EntityUser},
	{ActionUpdate, ScopeOwn, EntityUser},
	{ActionUpdate, ScopeOrganization, EntityUser},
	{ActionDelete, ScopeOrganization, EntityUser},

	// Organizations
	{ActionCreate, ScopeGranted, EntityOrganization},
	{ActionRead, ScopeOrganization, EntityOrganization},
	{ActionUpdate, ScopeOrganization, EntityOrganization},
	{ActionDelete, ScopeOrganization, EntityOrganization},

	// Avatars
	{ActionCreate, ScopeOwn, EntityAvatar},
	{ActionRead, ScopeOwn, EntityAvatar},
	{ActionUpdate, ScopeOwn, EntityAvatar},
	{ActionDelete, ScopeOwn, EntityAvatar},

	// Roles
	{ActionCreate, ScopeOrganization, EntityRole},
	{ActionRead, ScopeOrganization, EntityRole},
	{ActionUpdate, ScopeOrganization, EntityRole},
	{ActionDelete, ScopeOrganization, EntityRole},

	// Sessions
	{ActionRead, ScopeOwn, EntitySession},
	{ActionDelete, ScopeOwn, EntitySession},
	{ActionRead, ScopeOrganization, EntitySession},
	{ActionDelete, ScopeOrganization, EntitySession},

	// Dashboard
	{ActionRead, ScopeGranted, EntityDashboard},

	// Billing
	{ActionRead, ScopeOrganization, EntityBilling},
	{ActionUpdate, ScopeOrganization, EntityBilling},
}

// catalog indexes the canonical tuples by key.
var catalog = buildCatalog()

func buildCatalog() map[Key]Permission {
	m := make(map[Key]Permission, len(catalogTuples))
	for _, p := range catalogTuples {
		if _, dup := m[p.Key()]; dup {
			// The catalog is hardcoded; a duplicate is a code bug that
			// should fail fast at startup.
			panic("duplicate permission in catalog: " + string(p.Key()))
		}
		m[p.Key()] = p
	}
	return m
}

// Catalog returns all permissions in the catalog. The returned slice is a
// copy; mutating it does not affect the catalog.
func Catalog() []Permission {
	out := make([]Permission, len(catalogTuples))
	copy(out, catalogTuples)
	return out
}

// Lookup returns the canonical permission for a key, if the key is in the
// catalog.
func Lookup(k Key) (Permission, bool) {
	p, ok := catalog[k]
	return p, ok
}

// ValidKey reports whether a key names a catalog permission.
func ValidKey(k Key) bool {
	_, ok := catalog[k]
	return ok
}
