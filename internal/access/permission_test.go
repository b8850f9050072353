// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgate/stackgate/internal/access"
	"github.com/stackgate/stackgate/pkg/errutil"
)

func TestPermission_Key(t *testing.T) {
	t.Run("joins action, scope, entity with colons", func(t *testing.T) {
		p := access.Permission{
			Action: access.ActionRead,
			Scope:  access.ScopeOrganization,
			Entity: access.EntityOrganization,
		}
		assert.Equal(t, access.Key("read:organization:organization"), p.Key())
	})

	t.Run("is deterministic", func(t *testing.T) {
		p := access.Permission{
			Action: access.ActionUpdate,
			Scope:  access.ScopeOwn,
			Entity: access.EntityUser,
		}
		assert.Equal(t, p.Key(), p.Key())
	})

	t.Run("distinct tuples produce distinct keys", func(t *testing.T) {
		seen := make(map[access.Key]access.Permission)
		for _, p := range access.Catalog() {
			prev, dup := seen[p.Key()]
			require.False(t, dup, "key %s produced by both %v and %v", p.Key(), prev, p)
			seen[p.Key()] = p
		}
	})
}

func TestCatalog(t *testing.T) {
	t.Run("every catalog key looks up to its own tuple", func(t *testing.T) {
		for _, p := range access.Catalog() {
			got, ok := access.Lookup(p.Key())
			require.True(t, ok)
			assert.Equal(t, p, got)
		}
	})

	t.Run("unknown key is invalid", func(t *testing.T) {
		assert.False(t, access.ValidKey("read:galaxy:user"))
		assert.False(t, access.ValidKey(""))
		assert.False(t, access.ValidKey("read:own"))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		first := access.Catalog()
		first[0] = access.Permission{}
		second := access.Catalog()
		assert.NotEqual(t, access.Permission{}, second[0])
	})
}

func TestNewPermission(t *testing.T) {
	t.Run("accepts catalog tuple", func(t *testing.T) {
		p, err := access.NewPermission(access.ActionRead, access.ScopeGranted, access.EntityDashboard)
		require.NoError(t, err)
		assert.Equal(t, access.Key("read:granted:dashboard"), p.Key())
	})

	t.Run("rejects tuple outside catalog", func(t *testing.T) {
		_, err := access.NewPermission(access.ActionDelete, access.ScopeGranted, access.EntityDashboard)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PERMISSION_UNKNOWN")
	})
}

func TestSet(t *testing.T) {
	readOrg := access.Permission{Action: access.ActionRead, Scope: access.ScopeOrganization, Entity: access.EntityOrganization}.Key()
	readUser := access.Permission{Action: access.ActionRead, Scope: access.ScopeOwn, Entity: access.EntityUser}.Key()
	updateUser := access.Permission{Action: access.ActionUpdate, Scope: access.ScopeOwn, Entity: access.EntityUser}.Key()

	t.Run("HasAll requires every key", func(t *testing.T) {
		s := access.NewSet(readOrg, readUser)
		assert.True(t, s.HasAll(readOrg, readUser))
		assert.False(t, s.HasAll(readOrg, updateUser))
	})

	t.Run("HasAll on empty requirement is vacuously true", func(t *testing.T) {
		assert.True(t, access.NewSet().HasAll())
	})

	t.Run("HasAny requires at least one key", func(t *testing.T) {
		s := access.NewSet(readUser)
		assert.True(t, s.HasAny(readOrg, readUser))
		assert.False(t, s.HasAny(readOrg, updateUser))
	})

	t.Run("duplicate keys collapse", func(t *testing.T) {
		s := access.NewSet(readOrg, readOrg, readOrg)
		assert.Len(t, s.Keys(), 1)
	})
}
