// Package telemetry holds the prometheus collectors for the analytics
// engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ViewRefreshDuration observes how long materialized view refreshes
	// take, per view.
	ViewRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "permoney",
		Subsystem: "analytics",
		Name:      "view_refresh_duration_seconds",
		Help:      "Duration of materialized view refreshes.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"view"})

	// ViewRefreshTotal counts refresh outcomes per view.
	ViewRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "permoney",
		Subsystem: "analytics",
		Name:      "view_refresh_total",
		Help:      "Materialized view refresh outcomes.",
	}, []string{"view", "status"})

	// InsightRunsTotal counts insight generation runs by outcome.
	InsightRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "permoney",
		Subsystem: "analytics",
		Name:      "insight_runs_total",
		Help:      "Insight generation runs.",
	}, []string{"status"})

	// AnomaliesFlagged counts anomalies surfaced by detection runs.
	AnomaliesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "permoney",
		Subsystem: "analytics",
		Name:      "anomalies_flagged_total",
		Help:      "Transactions flagged as anomalous.",
	})
)
