// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/access"
	"github.com/stackgate/stackgate/internal/org"
)

// RoleRepository implements org.RoleRepository using PostgreSQL. Role writes
// touch two tables (roles, role_permissions) and run in a transaction.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// Create stores a new role and its permission set.
func (r *RoleRepository) Create(ctx context.Context, role *org.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("ROLE_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO roles (id, organization_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		role.ID.String(),
		role.OrganizationID.String(),
		role.Name,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ROLE_NAME_TAKEN").
				With("organization_id", role.OrganizationID.String()).
				With("name", role.Name).
				Wrap(err)
		}
		return oops.Code("ROLE_CREATE_FAILED").
			With("operation", "insert role").
			With("id", role.ID.String()).
			Wrap(err)
	}

	if err := insertRolePermissions(ctx, tx, role); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ROLE_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a role with its permissions.
func (r *RoleRepository) GetByID(ctx context.Context, id ulid.ULID) (*org.Role, error) {
	var (
		idStr    string
		orgIDStr string
		role     org.Role
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id.String()).Scan(&idStr, &orgIDStr, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("id", id.String()).
			Wrap(org.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_FAILED").
			With("operation", "get role by id").
			With("id", id.String()).
			Wrap(err)
	}

	if role.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("ROLE_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	if role.OrganizationID, err = ulid.Parse(orgIDStr); err != nil {
		return nil, oops.Code("ROLE_INVALID_ORG_ID").
			With("organization_id", orgIDStr).
			Wrap(err)
	}

	role.Permissions, err = r.loadPermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ListByOrganization retrieves all roles of an organization, ordered by name.
func (r *RoleRepository) ListByOrganization(ctx context.Context, organizationID ulid.ULID) ([]*org.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, name, created_at, updated_at
		FROM roles
		WHERE organization_id = $1
		ORDER BY name
	`, organizationID.String())
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").
			With("operation", "list roles by organization").
			With("organization_id", organizationID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var roles []*org.Role
	for rows.Next() {
		var (
			idStr    string
			orgIDStr string
			role     org.Role
		)
		if err := rows.Scan(&idStr, &orgIDStr, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, oops.Code("ROLE_SCAN_FAILED").
				With("operation", "scan role row").
				Wrap(err)
		}
		if role.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("ROLE_INVALID_ID").
				With("id", idStr).
				Wrap(err)
		}
		if role.OrganizationID, err = ulid.Parse(orgIDStr); err != nil {
			return nil, oops.Code("ROLE_INVALID_ORG_ID").
				With("organization_id", orgIDStr).
				Wrap(err)
		}
		roles = append(roles, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_ROWS_ERROR").
			With("operation", "iterate role rows").
			Wrap(err)
	}

	for _, role := range roles {
		role.Permissions, err = r.loadPermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// Update replaces a role's name and permission set.
func (r *RoleRepository) Update(ctx context.Context, role *org.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("ROLE_UPDATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback after commit is a no-op

	result, err := tx.Exec(ctx, `
		UPDATE roles SET name = $2, updated_at = $3
		WHERE id = $1
	`, role.ID.String(), role.Name, time.Now())
	if err != nil {
		return oops.Code("ROLE_UPDATE_FAILED").
			With("operation", "update role").
			With("id", role.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ROLE_NOT_FOUND").
			With("id", role.ID.String()).
			Wrap(org.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1
	`, role.ID.String()); err != nil {
		return oops.Code("ROLE_UPDATE_FAILED").
			With("operation", "clear role permissions").
			With("id", role.ID.String()).
			Wrap(err)
	}

	if err := insertRolePermissions(ctx, tx, role); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ROLE_UPDATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// Delete removes a role. Assignments go with it via ON DELETE CASCADE.
func (r *RoleRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM roles WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("ROLE_DELETE_FAILED").
			With("operation", "delete role").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ROLE_NOT_FOUND").
			With("id", id.String()).
			Wrap(org.ErrNotFound)
	}
	return nil
}

// AssignToUser grants the role to a user. Re-assigning is a no-op.
func (r *RoleRepository) AssignToUser(ctx context.Context, roleID, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID.String(), roleID.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code("ROLE_ASSIGN_TARGET_MISSING").
				With("role_id", roleID.String()).
				With("user_id", userID.String()).
				Wrap(org.ErrNotFound)
		}
		return oops.Code("ROLE_ASSIGN_FAILED").
			With("operation", "insert user role").
			With("role_id", roleID.String()).
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// UnassignFromUser removes the role from a user. Removing an assignment that
// does not exist is a no-op.
func (r *RoleRepository) UnassignFromUser(ctx context.Context, roleID, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
	`, userID.String(), roleID.String())
	if err != nil {
		return oops.Code("ROLE_UNASSIGN_FAILED").
			With("operation", "delete user role").
			With("role_id", roleID.String()).
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// loadPermissions fetches the permission tuples attached to a role.
func (r *RoleRepository) loadPermissions(ctx context.Context, roleID ulid.ULID) ([]access.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.action, p.scope, p.entity
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.action, p.scope, p.entity
	`, roleID.String())
	if err != nil {
		return nil, oops.Code("ROLE_PERMISSIONS_QUERY_FAILED").
			With("operation", "load role permissions").
			With("role_id", roleID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var permissions []access.Permission
	for rows.Next() {
		var action, scope, entity string
		if err := rows.Scan(&action, &scope, &entity); err != nil {
			return nil, oops.Code("ROLE_PERMISSIONS_SCAN_FAILED").
				With("operation", "scan permission row").
				Wrap(err)
		}
		permissions = append(permissions, access.Permission{
			Action: access.Action(action),
			Scope:  access.Scope(scope),
			Entity: access.Entity(entity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_PERMISSIONS_ROWS_ERROR").
			With("operation", "iterate permission rows").
			Wrap(err)
	}
	return permissions, nil
}

// insertRolePermissions links a role to its catalog permission rows. A tuple
// missing from the permissions table means the catalog seed has not run.
func insertRolePermissions(ctx context.Context, tx pgx.Tx, role *org.Role) error {
	for _, permission := range role.Permissions {
		result, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions
			WHERE action = $2 AND scope = $3 AND entity = $4
		`,
			role.ID.String(),
			string(permission.Action),
			string(permission.Scope),
			string(permission.Entity),
		)
		if err != nil {
			return oops.Code("ROLE_PERMISSION_LINK_FAILED").
				With("operation", "insert role permission").
				With("role_id", role.ID.String()).
				With("key", string(permission.Key())).
				Wrap(err)
		}
		if result.RowsAffected() == 0 {
			return oops.Code("ROLE_PERMISSION_UNSEEDED").
				With("role_id", role.ID.String()).
				With("key", string(permission.Key())).
				Errorf("permission tuple has no catalog row; run the seed command")
		}
	}
	return nil
}

// Compile-time interface check.
var _ org.RoleRepository = (*RoleRepository)(nil)
