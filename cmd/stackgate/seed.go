// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/stackgate/stackgate/internal/access"
	"github.com/stackgate/stackgate/internal/auth"
	authpg "github.com/stackgate/stackgate/internal/auth/postgres"
	"github.com/stackgate/stackgate/internal/org"
	orgpg "github.com/stackgate/stackgate/internal/org/postgres"
	"github.com/stackgate/stackgate/internal/store"
	"github.com/stackgate/stackgate/pkg/errutil"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedOrganizationID is the well-known ID of the bootstrap organization.
// A fixed ID keeps the command idempotent: re-running finds the existing
// row instead of creating a second organization.
var seedOrganizationID = ulid.MustParse("01JAG0SEED0000000000000000")

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout       time.Duration
	orgName       string
	adminEmail    string
	adminPassword string
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with bootstrap data",
		Long: `Creates the permission catalog rows, the first organization with its
default roles, and optionally the first admin user.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().StringVar(&cfg.orgName, "org-name", "StackGate", "name of the bootstrap organization")
	cmd.Flags().StringVar(&cfg.adminEmail, "admin-email", "", "email of the first admin user (empty = skip user creation)")
	cmd.Flags().StringVar(&cfg.adminPassword, "admin-password", "", "password of the first admin user")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}
	if cfg.adminEmail != "" && cfg.adminPassword == "" {
		return oops.Code("CONFIG_INVALID").Errorf("--admin-password is required with --admin-email")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Running migrations...")
	migrator, err := store.NewMigrator(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	if err := migrator.Close(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "close migrator").Wrap(err)
	}

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	if err := seedPermissionCatalog(ctx, cmd, pool); err != nil {
		return err
	}

	organization, err := seedOrganization(ctx, cmd, pool, cfg.orgName)
	if err != nil {
		return err
	}

	if err := seedDefaultRoles(ctx, cmd, pool, organization.ID); err != nil {
		return err
	}

	if cfg.adminEmail != "" {
		if err := seedAdminUser(ctx, cmd, pool, organization.ID, cfg.adminEmail, cfg.adminPassword); err != nil {
			return err
		}
	}

	cmd.Println("Seeding complete!")
	return nil
}

// seedPermissionCatalog inserts the closed permission catalog. Existing rows
// are left untouched.
func seedPermissionCatalog(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
	inserted := 0
	for _, p := range access.Catalog() {
		tag, err := pool.Exec(ctx, `
			INSERT INTO permissions (action, scope, entity)
			VALUES ($1, $2, $3)
			ON CONFLICT (action, scope, entity) DO NOTHING
		`, string(p.Action), string(p.Scope), string(p.Entity))
		if err != nil {
			return oops.Code("SEED_FAILED").
				With("operation", "insert permission").
				With("key", string(p.Key())).
				Wrap(err)
		}
		inserted += int(tag.RowsAffected())
	}

	cmd.Printf("Permission catalog seeded (%d new, %d total)\n", inserted, len(access.Catalog()))
	return nil
}

// seedOrganization creates the bootstrap organization under its well-known
// ID, or returns the existing one.
func seedOrganization(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, name string) (*org.Organization, error) {
	repo := orgpg.NewOrganizationRepository(pool)

	existing, err := repo.GetByID(ctx, seedOrganizationID)
	if err == nil {
		cmd.Printf("Organization %q already exists, skipping\n", existing.Name)
		return existing, nil
	}
	if !errors.Is(err, org.ErrNotFound) {
		return nil, oops.Code("SEED_FAILED").With("operation", "look up organization").Wrap(err)
	}

	organization, err := org.NewOrganization(name)
	if err != nil {
		return nil, oops.Code("SEED_FAILED").With("operation", "construct organization").Wrap(err)
	}
	organization.ID = seedOrganizationID

	if err := repo.Create(ctx, organization); err != nil {
		return nil, oops.Code("SEED_FAILED").With("operation", "create organization").Wrap(err)
	}

	cmd.Printf("Created organization %q\n", organization.Name)
	return organization, nil
}

// seedDefaultRoles creates the owner/admin/member roles. Roles already
// present (by name) are skipped.
func seedDefaultRoles(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, organizationID ulid.ULID) error {
	repo := orgpg.NewRoleRepository(pool)

	roles, err := org.DefaultRoles(organizationID)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "build default roles").Wrap(err)
	}

	for _, role := range roles {
		if err := repo.Create(ctx, role); err != nil {
			if errutil.Code(err) == "ROLE_NAME_TAKEN" {
				cmd.Printf("Role %q already exists, skipping\n", role.Name)
				continue
			}
			return oops.Code("SEED_FAILED").
				With("operation", "create role").
				With("role", role.Name).
				Wrap(err)
		}
		cmd.Printf("Created role %q (%d permissions)\n", role.Name, len(role.Permissions))
	}
	return nil
}

// seedAdminUser creates the first user and assigns the owner role. An
// existing user with the same email keeps its current state.
func seedAdminUser(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, organizationID ulid.ULID, email, password string) error {
	users := authpg.NewUserRepository(pool)

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		cmd.Printf("User %q already exists, skipping\n", existing.Email)
		return nil
	}
	if !errors.Is(err, auth.ErrNotFound) {
		return oops.Code("SEED_FAILED").With("operation", "look up admin user").Wrap(err)
	}

	hash, err := auth.NewArgon2idHasher().Hash(password)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash admin password").Wrap(err)
	}

	user, err := auth.NewUser(email, "Administrator", hash)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "construct admin user").Wrap(err)
	}
	user.OrganizationID = &organizationID

	if err := users.Create(ctx, user); err != nil {
		return oops.Code("SEED_FAILED").With("operation", "create admin user").Wrap(err)
	}

	ownerRole, err := findRoleByName(ctx, pool, organizationID, org.RoleOwner)
	if err != nil {
		return err
	}

	roles := orgpg.NewRoleRepository(pool)
	if err := roles.AssignToUser(ctx, ownerRole.ID, user.ID); err != nil {
		return oops.Code("SEED_FAILED").With("operation", "assign owner role").Wrap(err)
	}

	cmd.Printf("Created admin user %q with the owner role\n", user.Email)
	return nil
}

// findRoleByName loads a role by organization and name.
func findRoleByName(ctx context.Context, pool *pgxpool.Pool, organizationID ulid.ULID, name string) (*org.Role, error) {
	repo := orgpg.NewRoleRepository(pool)

	roles, err := repo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, oops.Code("SEED_FAILED").With("operation", "list roles").Wrap(err)
	}
	for _, role := range roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, oops.Code("SEED_FAILED").
		With("role", name).
		Errorf("expected role missing after seeding")
}
