// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackgate/stackgate/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the PostgreSQL connection pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error)

	// MigratorFactory creates the boot-time migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// AppServerFactory creates the application HTTP server. Default wires
	// the real server from the connection pool and session config.
	AppServerFactory func(deps appServerDeps) (AppServer, error)
}

// AutoMigrator interface wraps the migrator methods used at boot.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// AppServer interface wraps the methods used from httpserver.Server.
type AppServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
