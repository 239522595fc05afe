// Package telemetry provides logging setup and Prometheus metrics for the connected registry.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and served on the
// side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<CREG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// The endpoint is not served by the Gin router, so it never shares the public listener.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (e.g. /connected/realtime/:firstDeveloperHandle/:secondDeveloperHandle)
// rather than the raw URL. Developer handles never appear as label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/connected-registry/connected-registry/internal/safego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Request rate:       rate(http_requests_total[5m])
//   - p99 latency:        histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Registry query metrics.
//
// RegistryQueriesTotal counts connected-registry lookups by outcome:
// "history" (at least one entry), "empty" (unknown or never-connected pair),
// "error" (the query handler failed).
//
// RegistryEntriesReturned observes how many entries each successful lookup returned.
var (
	RegistryQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_queries_total",
			Help: "Total number of connected registry queries, by outcome.",
		},
		[]string{"outcome"},
	)

	RegistryEntriesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registry_entries_returned",
			Help:    "Number of connection entries returned per successful registry query.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

// RegistryCacheRequestsTotal counts register cache lookups by result: "hit", "miss" or "error".
//
// Example PromQL query:
//   - Hit ratio: sum(rate(registry_cache_requests_total{result="hit"}[5m])) / sum(rate(registry_cache_requests_total[5m]))
var RegistryCacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "registry_cache_requests_total",
		Help: "Total number of register cache lookups, by result.",
	},
	[]string{"result"},
)

// RateLimitRejectionsTotal counts requests rejected with 429, by limiter backend ("memory" or "redis").
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter, by backend.",
	},
	[]string{"backend"},
)

// DBOpenConnections tracks open connections in the sql.DB pool. It is sampled
// periodically by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples the pool statistics of db every interval until
// ctx is cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	})
}
