// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Route maps a navigable route to the permission keys that grant it.
// A user may navigate to the route when their permission set intersects
// Keys (logical OR). This is coarse page gating, not per-field authorization.
type Route struct {
	// ID is the route identifier shown in navigation, e.g. "/organization".
	ID string

	// Pattern optionally widens the route to a path pattern for request
	// gating, e.g. "/organization/**". Empty means the ID matches exactly.
	Pattern string

	// Keys are the alternative-granting permission keys for this route.
	Keys []Key
}

// compiledRoute pairs a route with its compiled path pattern.
type compiledRoute struct {
	route Route
	glob  glob.Glob
}

// RouteTable is the static route→permission mapping. Changing it is a
// deployment-time operation; the table is immutable after construction.
type RouteTable struct {
	routes []compiledRoute
}

// NewRouteTable compiles and validates a route table. Every key must exist
// in the permission catalog and every pattern must be valid glob syntax,
// otherwise construction fails.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	compiled := make([]compiledRoute, 0, len(routes))
	for _, rt := range routes {
		if rt.ID == "" {
			return nil, oops.In("access").
				Code("ROUTE_INVALID").
				Errorf("route id cannot be empty")
		}
		if len(rt.Keys) == 0 {
			return nil, oops.In("access").
				Code("ROUTE_INVALID").
				With("route", rt.ID).
				Errorf("route has no granting permission keys")
		}
		for _, k := range rt.Keys {
			if !ValidKey(k) {
				return nil, oops.In("access").
					Code("ROUTE_UNKNOWN_KEY").
					With("route", rt.ID).
					With("key", string(k)).
					Errorf("route references a key outside the catalog")
			}
		}

		pattern := rt.Pattern
		if pattern == "" {
			pattern = rt.ID
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.In("access").
				Code("ROUTE_INVALID_PATTERN").
				With("route", rt.ID).
				With("pattern", pattern).
				Wrap(err)
		}
		compiled = append(compiled, compiledRoute{route: rt, glob: g})
	}
	return &RouteTable{routes: compiled}, nil
}

// Routes returns the declared routes in declaration order.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, cr := range t.routes {
		out[i] = cr.route
	}
	return out
}

// Match returns the first route whose ID equals or whose pattern matches the
// request path.
func (t *RouteTable) Match(path string) (Route, bool) {
	for _, cr := range t.routes {
		if path == cr.route.ID || cr.glob.Match(path) {
			return cr.route, true
		}
	}
	return Route{}, false
}

// DefaultRoutes returns the route table shipped with the product shell.
func DefaultRoutes() []Route {
	return []Route{
		{
			ID:   "/dashboard",
			Keys: []Key{Permission{ActionRead, ScopeGranted, EntityDashboard}.Key()},
		},
		{
			ID:      "/organization",
			Pattern: "/organization",
			Keys:    []Key{Permission{ActionRead, ScopeOrganization, EntityOrganization}.Key()},
		},
		{
			ID:      "/organization/users",
			Pattern: "/organization/users/**",
			Keys:    []Key{Permission{ActionRead, ScopeOrganization, EntityUser}.Key()},
		},
		{
			ID:      "/organization/roles",
			Pattern: "/organization/roles/**",
			Keys:    []Key{Permission{ActionRead, ScopeOrganization, EntityRole}.Key()},
		},
		{
			ID:      "/organization/sessions",
			Pattern: "/organization/sessions/**",
			Keys:    []Key{Permission{ActionRead, ScopeOrganization, EntitySession}.Key()},
		},
		{
			ID:      "/billing",
			Pattern: "/billing/**",
			Keys:    []Key{Permission{ActionRead, ScopeOrganization, EntityBilling}.Key()},
		},
		{
			ID:      "/account",
			Pattern: "/account/**",
			Keys:    []Key{Permission{ActionRead, ScopeOwn, EntityUser}.Key()},
		},
		{
			ID:      "/account/sessions",
			Pattern: "/account/sessions/**",
			Keys: []Key{
				Permission{ActionRead, ScopeOwn, EntitySession}.Key(),
				Permission{ActionRead, ScopeOrganization, EntitySession}.Key(),
			},
		},
	}
}
