package model

import "time"

// ZoneSummary aggregates one zone's readings within a cycle.
type ZoneSummary struct {
	RecordCount     int          `json:"record_count"`
	AvgDisplacement float64      `json:"avg_displacement"`
	MaxDisplacement float64      `json:"max_displacement"`
	AvgVibration    float64      `json:"avg_vibration"`
	MaxVibration    float64      `json:"max_vibration"`
	RiskScore       float64      `json:"current_risk_score"`
	RiskCategory    RiskCategory `json:"risk_category"`
	AnomalyCount    int          `json:"anomaly_count"`
}

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	CycleID        string                 `json:"cycle_id"`
	ProcessedAt    time.Time              `json:"processed_at"`
	TotalRecords   int                    `json:"total_records"`
	DroppedRecords int                    `json:"dropped_records"`
	ZonesProcessed int                    `json:"zones_processed"`
	Anomalies      []Anomaly              `json:"anomalies"`
	ZoneSummaries  map[string]ZoneSummary `json:"zone_summary"`
}
