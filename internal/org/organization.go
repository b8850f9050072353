// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package org provides the tenant side of the model: organizations and the
// organization-scoped roles that feed the permission resolver. A user belongs
// to at most one organization; a role belongs to exactly one and carries a
// subset of the permission catalog.
package org

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Organization is one tenant. Deleting an organization cascades to its
// users, roles, and sessions at the schema level.
type Organization struct {
	ID        ulid.ULID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrganization creates a validated Organization instance.
func NewOrganization(name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.Code("ORG_INVALID_NAME").Errorf("organization name cannot be empty")
	}

	now := time.Now()
	return &Organization{
		ID:        ulid.Make(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OrganizationRepository manages organization persistence.
type OrganizationRepository interface {
	// Create stores a new organization.
	Create(ctx context.Context, organization *Organization) error

	// GetByID retrieves an organization by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Organization, error)

	// Update updates an existing organization.
	Update(ctx context.Context, organization *Organization) error

	// Delete removes an organization. The schema cascades the delete to
	// users, roles, and their assignments.
	Delete(ctx context.Context, id ulid.ULID) error
}
