// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the session lifecycle.
var (
	// sessionsCreated counts session issuance by context label.
	sessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackgate_sessions_created_total",
		Help: "Total number of sessions created by context",
	}, []string{"context"})

	// sessionsRevoked counts revocations by trigger.
	sessionsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackgate_sessions_revoked_total",
		Help: "Total number of sessions revoked by trigger",
	}, []string{"trigger"})

	// loginFailures counts failed password logins by reason.
	loginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackgate_login_failures_total",
		Help: "Total number of failed login attempts by reason",
	}, []string{"reason"})
)

func recordSessionCreated(context string) {
	sessionsCreated.WithLabelValues(context).Inc()
}

func recordSessionRevoked(trigger string) {
	sessionsRevoked.WithLabelValues(trigger).Inc()
}

func recordLoginFailure(reason string) {
	loginFailures.WithLabelValues(reason).Inc()
}
