// Package metrics provides Prometheus metrics for the identity store.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Store operation metrics.
	StoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identitystore",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total store operations by table, operation and outcome.",
	}, []string{"table", "op", "outcome"}) // outcome: "ok", "not_found" or "error"
	StoreOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "identitystore",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Store operation latency by table and operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"table", "op"})
	MigrationsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "identitystore",
		Subsystem: "store",
		Name:      "migrations_applied_total",
		Help:      "Total schema migrations applied by this process.",
	})

	// HTTP API metrics.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identitystore",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total API requests by method and status code.",
	}, []string{"method", "code"})
)

func init() {
	prometheus.MustRegister(
		StoreOpsTotal,
		StoreOpDuration,
		MigrationsApplied,
		HTTPRequestsTotal,
	)
}
