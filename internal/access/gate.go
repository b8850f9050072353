// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Decision is the outcome of an authorization check. On denial only Granted
// is populated; the resolved permission set is withheld so callers cannot
// leak protected data to unauthorized subjects.
type Decision struct {
	Granted     bool
	UserID      ulid.ULID
	Permissions Set
}

// denied is the sentinel decision returned on any denial.
var denied = Decision{Granted: false}

// Gate authorizes actions and filters navigation against a user's resolved
// permission set.
type Gate struct {
	resolver *Resolver
	routes   *RouteTable
}

// NewGate creates a Gate.
func NewGate(resolver *Resolver, routes *RouteTable) (*Gate, error) {
	if resolver == nil {
		return nil, oops.In("access").Code("GATE_INVALID").Errorf("resolver is required")
	}
	if routes == nil {
		return nil, oops.In("access").Code("GATE_INVALID").Errorf("route table is required")
	}
	return &Gate{resolver: resolver, routes: routes}, nil
}

// Authorize grants iff every required key is present in the user's resolved
// set (logical AND). An empty requirement list grants to any resolved user.
// Resolution failures surface as errors, not denials, so infrastructure
// trouble is never mistaken for missing permissions.
func (g *Gate) Authorize(ctx context.Context, userID ulid.ULID, required ...Key) (Decision, error) {
	set, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		// The resolver codes its own failures; wrapping adds context only.
		return denied, oops.In("access").
			With("user_id", userID.String()).
			Wrap(err)
	}

	if !set.HasAll(required...) {
		recordDecision("denied")
		return denied, nil
	}

	recordDecision("granted")
	return Decision{
		Granted:     true,
		UserID:      userID,
		Permissions: set,
	}, nil
}

// AuthorizeRoute gates a request path against the route table. Paths not
// declared in the table are denied (deny by default).
func (g *Gate) AuthorizeRoute(ctx context.Context, userID ulid.ULID, path string) (Decision, error) {
	route, ok := g.routes.Match(path)
	if !ok {
		recordDecision("denied")
		return denied, nil
	}

	set, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return denied, oops.In("access").
			With("user_id", userID.String()).
			With("path", path).
			Wrap(err)
	}

	if !set.HasAny(route.Keys...) {
		recordDecision("denied")
		return denied, nil
	}

	recordDecision("granted")
	return Decision{
		Granted:     true,
		UserID:      userID,
		Permissions: set,
	}, nil
}

// NavigableRoutes returns the route IDs the user may navigate to: each route
// whose key list intersects the resolved permission set (logical OR per
// route). Order follows the table declaration.
func (g *Gate) NavigableRoutes(ctx context.Context, userID ulid.ULID) ([]string, error) {
	set, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, oops.In("access").
			With("user_id", userID.String()).
			Wrap(err)
	}

	var out []string
	for _, route := range g.routes.Routes() {
		if set.HasAny(route.Keys...) {
			out = append(out, route.ID)
		}
	}
	return out, nil
}
