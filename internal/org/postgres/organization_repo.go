// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package postgres implements org repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/org"
)

// OrganizationRepository implements org.OrganizationRepository using PostgreSQL.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new OrganizationRepository.
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

// Create stores a new organization.
func (r *OrganizationRepository) Create(ctx context.Context, organization *org.Organization) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`,
		organization.ID.String(),
		organization.Name,
		organization.CreatedAt,
		organization.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ORG_CREATE_FAILED").
			With("operation", "insert organization").
			With("id", organization.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an organization by ID.
func (r *OrganizationRepository) GetByID(ctx context.Context, id ulid.ULID) (*org.Organization, error) {
	var (
		idStr        string
		organization org.Organization
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id.String()).Scan(&idStr, &organization.Name, &organization.CreatedAt, &organization.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ORG_NOT_FOUND").
			With("id", id.String()).
			Wrap(org.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ORG_GET_FAILED").
			With("operation", "get organization by id").
			With("id", id.String()).
			Wrap(err)
	}

	organization.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ORG_INVALID_ID").
			With("operation", "parse organization id").
			With("id", idStr).
			Wrap(err)
	}
	return &organization, nil
}

// Update updates an existing organization.
func (r *OrganizationRepository) Update(ctx context.Context, organization *org.Organization) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE organizations SET name = $2, updated_at = $3
		WHERE id = $1
	`, organization.ID.String(), organization.Name, time.Now())
	if err != nil {
		return oops.Code("ORG_UPDATE_FAILED").
			With("operation", "update organization").
			With("id", organization.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ORG_NOT_FOUND").
			With("id", organization.ID.String()).
			Wrap(org.ErrNotFound)
	}
	return nil
}

// Delete removes an organization. Users, roles, and their assignments go
// with it via ON DELETE CASCADE.
func (r *OrganizationRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM organizations WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("ORG_DELETE_FAILED").
			With("operation", "delete organization").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ORG_NOT_FOUND").
			With("id", id.String()).
			Wrap(org.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ org.OrganizationRepository = (*OrganizationRepository)(nil)
