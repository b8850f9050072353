// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package mocks provides testify mocks for access interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/stackgate/stackgate/internal/access"
)

// MockRoleSource is a testify mock for access.RoleSource.
type MockRoleSource struct {
	mock.Mock
}

// NewMockRoleSource creates a MockRoleSource whose expectations are asserted
// at test cleanup.
func NewMockRoleSource(t *testing.T) *MockRoleSource {
	t.Helper()
	m := &MockRoleSource{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// PermissionsForUser implements access.RoleSource.
func (m *MockRoleSource) PermissionsForUser(ctx context.Context, userID ulid.ULID) ([]access.Permission, error) {
	args := m.Called(ctx, userID)
	perms, _ := args.Get(0).([]access.Permission)
	return perms, args.Error(1)
}

// Compile-time interface check.
var _ access.RoleSource = (*MockRoleSource)(nil)
