// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slopewatch_readings_processed_total",
		Help: "Cleaned sensor readings accepted into evaluation cycles.",
	})

	ReadingsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slopewatch_readings_dropped_total",
		Help: "Raw readings dropped during cleaning (unknown zone, duplicate, un-imputable).",
	})

	AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slopewatch_anomalies_detected_total",
		Help: "Anomalies detected, by type and severity.",
	}, []string{"type", "severity"})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slopewatch_alerts_created_total",
		Help: "Alerts created, by level.",
	}, []string{"level"})

	AlertsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slopewatch_alerts_resolved_total",
		Help: "Alerts resolved, by resolution kind (auto, operator, escalation).",
	}, []string{"kind"})

	ActiveAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slopewatch_active_alerts",
		Help: "Currently ACTIVE alerts across all zones.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slopewatch_cycle_duration_seconds",
		Help:    "Wall time of one evaluation cycle.",
		Buckets: prometheus.DefBuckets,
	})

	ZoneRiskScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slopewatch_zone_risk_score",
		Help: "Latest 0-10 risk score per zone.",
	}, []string{"zone"})
)
