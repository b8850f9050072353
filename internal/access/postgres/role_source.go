// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package postgres implements access interfaces using PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/access"
)

// RoleSource implements access.RoleSource using PostgreSQL.
type RoleSource struct {
	pool *pgxpool.Pool
}

// NewRoleSource creates a new RoleSource.
func NewRoleSource(pool *pgxpool.Pool) *RoleSource {
	return &RoleSource{pool: pool}
}

// PermissionsForUser returns every permission tuple assigned to the user
// through any of their roles. Duplicates across roles are returned as-is;
// the resolver deduplicates via set semantics.
func (r *RoleSource) PermissionsForUser(ctx context.Context, userID ulid.ULID) ([]access.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.action, p.scope, p.entity
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
	`, userID.String())
	if err != nil {
		return nil, oops.Code("PERMISSIONS_QUERY_FAILED").
			With("operation", "query permissions for user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var perms []access.Permission
	for rows.Next() {
		var action, scope, entity string
		if err := rows.Scan(&action, &scope, &entity); err != nil {
			return nil, oops.Code("PERMISSIONS_SCAN_FAILED").
				With("operation", "scan permission row").
				Wrap(err)
		}
		perms = append(perms, access.Permission{
			Action: access.Action(action),
			Scope:  access.Scope(scope),
			Entity: access.Entity(entity),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("PERMISSIONS_ROWS_ERROR").
			With("operation", "iterate permission rows").
			Wrap(err)
	}

	return perms, nil
}

// Compile-time interface check.
var _ access.RoleSource = (*RoleSource)(nil)
