// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/stackgate/stackgate/internal/auth/postgres"
	"github.com/stackgate/stackgate/internal/store"
)

// Default timeout for sweep command.
const defaultSweepTimeout = 30 * time.Second

// newSweepCmd creates the sweep subcommand. Revocation never deletes rows;
// this command is the offline cleanup that finally removes expired sessions.
func newSweepCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Physically removes session records whose expiry has passed. Active and
revoked-but-unexpired sessions are kept for the device-management view.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSweepTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSweep(cmd *cobra.Command, timeout time.Duration) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	pool, err := store.Connect(ctx, url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	deleted, err := authpg.NewSessionStore(pool).DeleteExpired(ctx)
	if err != nil {
		return oops.Code("SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}

	cmd.Printf("Deleted %d expired sessions\n", deleted)
	return nil
}
