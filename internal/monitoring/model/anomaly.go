package model

import "time"

// AnomalySeverity grades a detection.
type AnomalySeverity string

const (
	SeverityMedium AnomalySeverity = "medium"
	SeverityHigh   AnomalySeverity = "high"
)

// Anomaly types follow the "<column>_statistical" / "<column>_spike" scheme.
const (
	AnomalyDisplacementStatistical = "displacement_mm_statistical"
	AnomalyVibrationStatistical    = "vibration_mm_s_statistical"
	AnomalyDisplacementRateSpike   = "displacement_rate_spike"
	AnomalyVibrationRateSpike      = "vibration_rate_spike"
)

// Anomaly is an append-only detection record for one statistically unusual
// reading. Informational only: anomalies never create alerts by themselves.
type Anomaly struct {
	Timestamp time.Time       `json:"timestamp"`
	ZoneID    string          `json:"zone_id"`
	Type      string          `json:"anomaly_type"`
	Value     float64         `json:"value"`
	Threshold float64         `json:"threshold"` // exceeded threshold, or std reference for spikes
	Severity  AnomalySeverity `json:"severity"`
}
