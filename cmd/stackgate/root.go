// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the StackGate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackgate",
		Short: "StackGate - session authentication and attribute-based access control",
		Long: `StackGate is the authentication and authorization service for
multi-tenant SaaS applications: cookie sessions backed by a PostgreSQL
session store, and a closed permission catalog resolved through roles.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
