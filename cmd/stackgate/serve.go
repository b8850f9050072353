// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/stackgate/stackgate/internal/access"
	accesspg "github.com/stackgate/stackgate/internal/access/postgres"
	"github.com/stackgate/stackgate/internal/auth"
	authpg "github.com/stackgate/stackgate/internal/auth/postgres"
	"github.com/stackgate/stackgate/internal/config"
	"github.com/stackgate/stackgate/internal/geoip"
	"github.com/stackgate/stackgate/internal/httpserver"
	"github.com/stackgate/stackgate/internal/logging"
	"github.com/stackgate/stackgate/internal/observability"
	"github.com/stackgate/stackgate/internal/store"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 5 * time.Second

// appServerDeps carries the wiring inputs for the application server.
type appServerDeps struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the StackGate server",
		Long: `Start the StackGate server: the authentication/authorization JSON API
on the application address and the metrics/health endpoints on the
metrics address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, autoMigrate, nil)
		},
	}

	// Flag names map directly to config keys so the config loader can
	// overlay them onto the file and defaults.
	cmd.Flags().String("server.addr", "", "application HTTP listen address")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "run pending migrations at startup")

	return cmd
}

// runServe starts the server with injectable dependencies. A nil deps uses
// the default implementations.
func runServe(ctx context.Context, cmd *cobra.Command, autoMigrate bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = store.Connect
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.AppServerFactory == nil {
		deps.AppServerFactory = buildAppServer
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.SetDefault("stackgate", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	logger.Info("starting stackgate",
		"server_addr", cfg.Server.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	if autoMigrate {
		if err := runAutoMigrate(deps, cfg.Database.URL); err != nil {
			return fmt.Errorf("failed to run startup migrations: %w", err)
		}
		logger.Info("database schema up to date")
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	appServer, err := deps.AppServerFactory(appServerDeps{cfg: cfg, pool: pool, logger: logger})
	if err != nil {
		return fmt.Errorf("failed to build application server: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appErrCh, err := appServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start application server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, appErrCh, "application")

	// Start observability server if configured
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, readinessCheck(pool))
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := appServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop application server during cleanup", "error", stopErr)
			}
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("StackGate started")
	logger.Info("stackgate ready", "addr", appServer.Addr())

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := appServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping application server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// runAutoMigrate brings the schema to the latest version at boot.
func runAutoMigrate(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if closeErr := migrator.Close(); closeErr != nil && upErr == nil {
		upErr = closeErr
	}
	return upErr
}

// buildAppServer wires the full stack: repositories over the pool, the token
// codec, geolocation enrichment, the session lifecycle, password login, and
// the permission gate.
func buildAppServer(deps appServerDeps) (AppServer, error) {
	cfg, pool, logger := deps.cfg, deps.pool, deps.logger

	sessions := authpg.NewSessionStore(pool)
	users := authpg.NewUserRepository(pool)
	roleSource := accesspg.NewRoleSource(pool)

	codec, err := auth.NewTokenCodec(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}

	var geo geoip.Lookup = geoip.Disabled{}
	if cfg.GeoIP.Token != "" {
		geo = geoip.NewClient(cfg.GeoIP.Endpoint, cfg.GeoIP.Token)
	}

	service, err := auth.NewService(sessions, users, codec, geo, auth.ServiceConfig{
		CookieName: cfg.Session.CookieName,
		SessionTTL: cfg.Session.TTL,
	}, logger)
	if err != nil {
		return nil, err
	}

	authn, err := auth.NewAuthenticator(users, service, auth.NewArgon2idHasher())
	if err != nil {
		return nil, err
	}

	resolver, err := access.NewResolver(roleSource, logger)
	if err != nil {
		return nil, err
	}

	routes, err := access.NewRouteTable(access.DefaultRoutes())
	if err != nil {
		return nil, err
	}

	gate, err := access.NewGate(resolver, routes)
	if err != nil {
		return nil, err
	}

	return httpserver.NewServer(cfg.Server.Addr, service, authn, gate, logger)
}

// readinessCheck reports ready while the database answers pings.
func readinessCheck(pool *pgxpool.Pool) observability.ReadinessChecker {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}
}

// monitorServerErrors cancels the process context when a server reports a
// serve-time failure, so one failed listener shuts the whole process down.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
