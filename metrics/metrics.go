// Package metrics exposes the service's Prometheus collectors. Everything
// registers on the default registry at init; the serve command mounts the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts finished checks by outcome: "complete" or the
	// lowercased failure code.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "richtest",
		Name:      "checks_total",
		Help:      "Finished checks by outcome.",
	}, []string{"outcome"})

	// CheckDuration observes end-to-end check latency in seconds.
	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "richtest",
		Name:      "check_duration_seconds",
		Help:      "End-to-end check latency in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// RecoveryAttemptsTotal counts dismiss-and-resubmit cycles across all
	// checks.
	RecoveryAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "richtest",
		Name:      "recovery_attempts_total",
		Help:      "Transient tool error recovery attempts.",
	})

	// ActivePages tracks browser pages currently owned by running checks.
	ActivePages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "richtest",
		Name:      "active_pages",
		Help:      "Browser pages currently in use.",
	})

	// BatchJobsTotal counts batch jobs by terminal status.
	BatchJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "richtest",
		Name:      "batch_jobs_total",
		Help:      "Batch jobs by terminal status.",
	}, []string{"status"})
)
