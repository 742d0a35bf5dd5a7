// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryDuration tracks engine operation latency
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bricks_engine_query_duration_seconds",
		Help:    "Inventory engine operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"operation"})

	// DegradedData counts catalog records that were missing or empty and scored as zero
	DegradedData = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_engine_degraded_total",
		Help: "Catalog inconsistencies degraded to a zero contribution, by kind",
	}, []string{"kind"})

	// ManifestsScanned counts manifests scored by full scans
	ManifestsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bricks_engine_manifests_scanned_total",
		Help: "Manifests scored during full catalog scans",
	})

	// Views counts view tracking outcomes
	Views = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_views_total",
		Help: "Assembly view tracking outcomes",
	}, []string{"result"})

	// HTTPRequests counts handled requests by route and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bricks_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})
)

const (
	ViewCounted    = "counted"
	ViewDuplicate  = "duplicate"
	ViewPersisted  = "persisted"
	ViewRolledBack = "rolled_back"
)

// ObserveSince records the time elapsed since start for operation.
func ObserveSince(operation string, start time.Time) {
	QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
