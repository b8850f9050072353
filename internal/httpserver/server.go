// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/stackgate/stackgate/internal/access"
	"github.com/stackgate/stackgate/internal/auth"
)

// Server is the application HTTP server: the JSON API for authentication,
// session management, and navigation, with permission middleware around
// every authenticated route.
type Server struct {
	addr       string
	sessions   *auth.Service
	authn      *auth.Authenticator
	gate       *access.Gate
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the application server.
func NewServer(addr string, sessions *auth.Service, authn *auth.Authenticator, gate *access.Gate, logger *slog.Logger) (*Server, error) {
	if sessions == nil {
		return nil, oops.Code("SERVER_INVALID").Errorf("session service is required")
	}
	if authn == nil {
		return nil, oops.Code("SERVER_INVALID").Errorf("authenticator is required")
	}
	if gate == nil {
		return nil, oops.Code("SERVER_INVALID").Errorf("access gate is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:     addr,
		sessions: sessions,
		authn:    authn,
		gate:     gate,
		logger:   logger,
	}, nil
}

// Handler builds the full route tree. Exposed for tests; Start uses it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	// Everything below requires an authenticated session.
	authed := func(h http.HandlerFunc) http.Handler {
		return s.RequireSession(s.Renew(h))
	}
	mux.Handle("GET /api/me", authed(s.handleMe))
	mux.Handle("GET /api/navigation", authed(s.handleNavigation))
	mux.Handle("GET /api/sessions", authed(s.handleListSessions))
	mux.Handle("DELETE /api/sessions/{id}", authed(s.handleRevokeSession))
	mux.Handle("POST /api/sessions/revoke-others", authed(s.handleRevokeOthers))

	// Organization-scope session management, gated on the admin permission.
	mux.Handle("DELETE /api/admin/sessions/{id}", s.RequireSession(s.Renew(
		s.RequirePermissions(access.Permission{
			Action: access.ActionDelete,
			Scope:  access.ScopeOrganization,
			Entity: access.EntitySession,
		}.Key())(http.HandlerFunc(s.handleAdminRevokeSession)),
	)))

	// Page probes let the frontend shell ask whether the caller may open a
	// product page. The path under /pages is matched against the route table.
	mux.Handle("GET /pages/", http.StripPrefix("/pages",
		s.RequireSession(s.Renew(s.RouteGuard(http.HandlerFunc(s.handlePageProbe))))))

	return mux
}

// Start begins serving. It returns an error channel that receives any
// serve-time failure; the channel closes when the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state so the server can be stopped again.
			s.running.Store(true)
			return oops.With("operation", "shutdown http server").Wrap(err)
		}
	}

	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(body)
}

// writeError writes the uniform JSON error envelope. The message is
// deliberately coarse; details stay in the server log.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
