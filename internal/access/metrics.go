// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for authorization decisions and permission resolution.
var (
	// authzDecisions counts gate decisions by effect.
	authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackgate_authz_decisions_total",
		Help: "Total number of authorization decisions",
	}, []string{"effect"})

	// resolveDuration tracks the latency of permission resolution.
	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stackgate_permission_resolve_duration_seconds",
		Help:    "Histogram of permission resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func recordDecision(effect string) {
	authzDecisions.WithLabelValues(effect).Inc()
}

func observeResolveDuration(d time.Duration) {
	resolveDuration.Observe(d.Seconds())
}
