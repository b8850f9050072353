// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeSweep(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"sweep"}, args...))
	return cmd.Execute()
}

func TestSweepCommand_Properties(t *testing.T) {
	cmd := newSweepCmd()

	assert.Equal(t, "sweep", cmd.Use)
	assert.Contains(t, cmd.Short, "expired", "Short description should mention expired sessions")
	assert.NotNil(t, cmd.Flags().Lookup("timeout"), "missing flag timeout")
}

func TestSweepCommand_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	err := executeSweep(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestSweepCommand_InvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "invalid://not-a-real-db")

	err := executeSweep(t, "--timeout", "2s")
	require.Error(t, err, "Expected error with invalid DATABASE_URL")
}
