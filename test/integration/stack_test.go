// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

//go:build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stackgate/stackgate/internal/access"
	accesspg "github.com/stackgate/stackgate/internal/access/postgres"
	"github.com/stackgate/stackgate/internal/auth"
	authpg "github.com/stackgate/stackgate/internal/auth/postgres"
	"github.com/stackgate/stackgate/internal/org"
	orgpg "github.com/stackgate/stackgate/internal/org/postgres"
	"github.com/stackgate/stackgate/internal/store"
	"github.com/stackgate/stackgate/pkg/errutil"
)

// testEnv holds all the resources needed for integration tests.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	pool      *pgxpool.Pool

	sessions *authpg.SessionStore
	users    *authpg.UserRepository
	orgs     *orgpg.OrganizationRepository
	roles    *orgpg.RoleRepository
	source   *accesspg.RoleSource
}

// setupTestEnv starts PostgreSQL, migrates the schema, and seeds the
// permission catalog.
func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	env := &testEnv{
		ctx:    ctx,
		cancel: cancel,
	}

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("stackgate_test"),
		postgres.WithUsername("stackgate"),
		postgres.WithPassword("stackgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Connect(ctx, connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	if err := seedCatalog(ctx, env.pool); err != nil {
		env.cleanup()
		return nil, err
	}

	env.sessions = authpg.NewSessionStore(env.pool)
	env.users = authpg.NewUserRepository(env.pool)
	env.orgs = orgpg.NewOrganizationRepository(env.pool)
	env.roles = orgpg.NewRoleRepository(env.pool)
	env.source = accesspg.NewRoleSource(env.pool)

	return env, nil
}

// seedCatalog inserts the closed permission catalog, as the seed command does.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range access.Catalog() {
		if _, err := pool.Exec(ctx, `
			INSERT INTO permissions (action, scope, entity)
			VALUES ($1, $2, $3)
			ON CONFLICT (action, scope, entity) DO NOTHING
		`, string(p.Action), string(p.Scope), string(p.Entity)); err != nil {
			return err
		}
	}
	return nil
}

// cleanup releases all test resources.
func (env *testEnv) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(ctx)
	}
	env.cancel()
}

// createUser inserts a user with a throwaway password hash.
func (env *testEnv) createUser(email string) *auth.User {
	user, err := auth.NewUser(email, "Test User", "$argon2id$placeholder-hash")
	Expect(err).NotTo(HaveOccurred())
	Expect(env.users.Create(env.ctx, user)).To(Succeed())
	return user
}

// createSession inserts an unexpired session for the user.
func (env *testEnv) createSession(userID ulid.ULID, expiresAt time.Time) *auth.Session {
	session, err := auth.NewSession(userID, "web", auth.RequestMeta{
		IPAddress: "192.0.2.10",
		UserAgent: "integration-test",
	}, nil, expiresAt)
	Expect(err).NotTo(HaveOccurred())
	Expect(env.sessions.Create(env.ctx, session)).To(Succeed())
	return session
}

var _ = Describe("Persistence Stack", func() {
	var env *testEnv

	BeforeEach(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.cleanup()
	})

	Describe("User accounts", func() {
		It("stores and retrieves users by email, case-insensitively", func() {
			user := env.createUser("Ada@Example.com")

			found, err := env.users.GetByEmail(env.ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(user.ID))
			Expect(found.Email).To(Equal("ada@example.com"), "emails are normalized on creation")
		})

		It("rejects a second user with the same email", func() {
			env.createUser("ada@example.com")

			dup, err := auth.NewUser("ADA@example.com", "Imposter", "$argon2id$other-hash")
			Expect(err).NotTo(HaveOccurred())

			err = env.users.Create(env.ctx, dup)
			Expect(err).To(HaveOccurred())
			Expect(errutil.Code(err)).To(Equal("USER_EMAIL_TAKEN"))
		})

		It("round-trips lockout state through Update", func() {
			user := env.createUser("ada@example.com")
			for range 7 {
				user.RecordFailure()
			}
			Expect(env.users.Update(env.ctx, user)).To(Succeed())

			found, err := env.users.GetByID(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.IsLocked()).To(BeTrue())
			Expect(found.FailedAttempts).To(Equal(user.FailedAttempts))
		})
	})

	Describe("Sessions", func() {
		It("finds only live sessions", func() {
			user := env.createUser("ada@example.com")
			session := env.createSession(user.ID, time.Now().Add(time.Hour))

			found, err := env.sessions.FindActive(env.ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.UserID).To(Equal(user.ID))
			Expect(found.Meta.IPAddress).To(Equal("192.0.2.10"))
		})

		It("hides revoked sessions from FindActive", func() {
			user := env.createUser("ada@example.com")
			session := env.createSession(user.ID, time.Now().Add(time.Hour))

			Expect(env.sessions.Revoke(env.ctx, session.ID, time.Now())).To(Succeed())

			_, err := env.sessions.FindActive(env.ctx, session.ID)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("keeps the first revocation timestamp on repeated revokes", func() {
			user := env.createUser("ada@example.com")
			session := env.createSession(user.ID, time.Now().Add(time.Hour))

			first := time.Now()
			Expect(env.sessions.Revoke(env.ctx, session.ID, first)).To(Succeed())
			Expect(env.sessions.Revoke(env.ctx, session.ID, first.Add(time.Hour))).To(Succeed())

			all, err := env.sessions.FindByUser(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].RevokedAt).NotTo(BeNil())
			Expect(all[0].RevokedAt.Sub(first).Abs()).To(BeNumerically("<", time.Second))
		})

		It("slides the expiry forward", func() {
			user := env.createUser("ada@example.com")
			session := env.createSession(user.ID, time.Now().Add(time.Minute))

			later := time.Now().Add(48 * time.Hour)
			Expect(env.sessions.UpdateExpiry(env.ctx, session.ID, later)).To(Succeed())

			found, err := env.sessions.FindActive(env.ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ExpiresAt.Sub(later).Abs()).To(BeNumerically("<", time.Second))
		})

		It("deletes only expired sessions", func() {
			user := env.createUser("ada@example.com")
			live := env.createSession(user.ID, time.Now().Add(time.Hour))
			env.createSession(user.ID, time.Now().Add(-time.Hour))

			deleted, err := env.sessions.DeleteExpired(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			all, err := env.sessions.FindByUser(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].ID).To(Equal(live.ID))
		})
	})

	Describe("Roles and permissions", func() {
		var organization *org.Organization

		BeforeEach(func() {
			var err error
			organization, err = org.NewOrganization("Acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(env.orgs.Create(env.ctx, organization)).To(Succeed())
		})

		It("creates the default roles and resolves permissions through them", func() {
			defaults, err := org.DefaultRoles(organization.ID)
			Expect(err).NotTo(HaveOccurred())
			for _, role := range defaults {
				Expect(env.roles.Create(env.ctx, role)).To(Succeed())
			}

			user := env.createUser("ada@example.com")
			owner := roleByName(defaults, org.RoleOwner)
			Expect(env.roles.AssignToUser(env.ctx, owner.ID, user.ID)).To(Succeed())

			resolver, err := access.NewResolver(env.source, slog.Default())
			Expect(err).NotTo(HaveOccurred())

			set, err := resolver.Resolve(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(set.HasAll(owner.Keys()...)).To(BeTrue(), "owner role grants its full permission set")
		})

		It("rejects duplicate role names within an organization", func() {
			role, err := org.NewRole(organization.ID, "auditors", []access.Key{
				access.Permission{Action: access.ActionRead, Scope: access.ScopeOrganization, Entity: access.EntityUser}.Key(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(env.roles.Create(env.ctx, role)).To(Succeed())

			again, err := org.NewRole(organization.ID, "auditors", nil)
			Expect(err).NotTo(HaveOccurred())
			err = env.roles.Create(env.ctx, again)
			Expect(errutil.Code(err)).To(Equal("ROLE_NAME_TAKEN"))
		})

		It("drops permissions when a role is unassigned", func() {
			role, err := org.NewRole(organization.ID, "viewers", []access.Key{
				access.Permission{Action: access.ActionRead, Scope: access.ScopeOwn, Entity: access.EntityDashboard}.Key(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(env.roles.Create(env.ctx, role)).To(Succeed())

			user := env.createUser("ada@example.com")
			Expect(env.roles.AssignToUser(env.ctx, role.ID, user.ID)).To(Succeed())

			perms, err := env.source.PermissionsForUser(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(HaveLen(1))

			Expect(env.roles.UnassignFromUser(env.ctx, role.ID, user.ID)).To(Succeed())

			perms, err = env.source.PermissionsForUser(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})

		It("authorizes route access end to end", func() {
			role, err := org.NewRole(organization.ID, "dashboard-only", []access.Key{
				access.Permission{Action: access.ActionRead, Scope: access.ScopeOwn, Entity: access.EntityDashboard}.Key(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(env.roles.Create(env.ctx, role)).To(Succeed())

			user := env.createUser("ada@example.com")
			Expect(env.roles.AssignToUser(env.ctx, role.ID, user.ID)).To(Succeed())

			resolver, err := access.NewResolver(env.source, slog.Default())
			Expect(err).NotTo(HaveOccurred())
			routes, err := access.NewRouteTable(access.DefaultRoutes())
			Expect(err).NotTo(HaveOccurred())
			gate, err := access.NewGate(resolver, routes)
			Expect(err).NotTo(HaveOccurred())

			decision, err := gate.AuthorizeRoute(env.ctx, user.ID, "/dashboard")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Granted).To(BeTrue())

			decision, err = gate.AuthorizeRoute(env.ctx, user.ID, "/billing")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision.Granted).To(BeFalse())
		})
	})
})

// roleByName finds a role in a slice by name.
func roleByName(roles []*org.Role, name string) *org.Role {
	for _, role := range roles {
		if role.Name == name {
			return role
		}
	}
	Fail("role not found: " + name)
	return nil
}
