package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	monmodel "github.com/slopewatch/slopewatch/internal/monitoring/model"
)

// ErrNoActiveAlert is returned when a resolution targets an alert that is not
// currently ACTIVE.
var ErrNoActiveAlert = errors.New("no active alert")

// TimestampLayout is the external timestamp format for alert records.
const TimestampLayout = "2006-01-02 15:04:05"

type Level string

const (
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusResolved Status = "RESOLVED"
)

// Trigger reasons emitted by the threshold evaluator, in check order.
const (
	ReasonCriticalDisplacement = "critical_displacement"
	ReasonHighDisplacement     = "high_displacement"
	ReasonCriticalVibration    = "critical_vibration"
	ReasonHighVibration        = "high_vibration"
	ReasonCriticalRiskScore    = "critical_risk_score"
	ReasonHighRiskScore        = "high_risk_score"
	ReasonAnomalyDetected      = "anomaly_detected"
	ReasonMultipleFactors      = "multiple_factors"
)

// Alert is the durable record of one safety concern for a zone. Alerts are
// append-only: they transition ACTIVE -> RESOLVED and are never deleted.
type Alert struct {
	ID                int64                   `json:"-"`
	ZoneID            string                  `json:"zone_id"`
	ZoneName          string                  `json:"zone_name"`
	Level             Level                   `json:"alert_level"`
	RiskScore         float64                 `json:"risk_score"`
	TriggerReasons    []string                `json:"trigger_reasons"`
	RecommendedAction string                  `json:"recommended_action"`
	Status            Status                  `json:"status"`
	CreatedAt         time.Time               `json:"-"`
	ResolvedAt        *time.Time              `json:"-"`
	ResolutionNotes   string                  `json:"resolution_notes,omitempty"`
	Snapshot          monmodel.SensorSnapshot `json:"sensor_snapshot"`
}

// DisplayID renders the external alert identifier, e.g. "ALT007".
func (a *Alert) DisplayID() string { return fmt.Sprintf("ALT%03d", a.ID) }

// MarshalJSON renders ids and timestamps in the external record format.
func (a *Alert) MarshalJSON() ([]byte, error) {
	type alias Alert
	resolved := ""
	if a.ResolvedAt != nil {
		resolved = a.ResolvedAt.Format(TimestampLayout)
	}
	return json.Marshal(struct {
		AlertID   string `json:"alert_id"`
		Timestamp string `json:"timestamp"`
		Resolved  string `json:"resolved_timestamp,omitempty"`
		*alias
	}{
		AlertID:   a.DisplayID(),
		Timestamp: a.CreatedAt.Format(TimestampLayout),
		Resolved:  resolved,
		alias:     (*alias)(a),
	})
}

// Candidate is the threshold evaluator's proposal for a zone this cycle.
type Candidate struct {
	Level          Level    `json:"alert_level"`
	TriggerReasons []string `json:"trigger_reasons"`
	RiskScore      float64  `json:"risk_score"`
}

// Summary aggregates the alert history for dashboards.
type Summary struct {
	TotalAlerts    int `json:"total_alerts"`
	ActiveAlerts   int `json:"active_alerts"`
	Critical24h    int `json:"critical_alerts_24h"`
	Warning24h     int `json:"warning_alerts_24h"`
	RecentAlerts24 int `json:"recent_alerts_24h"`
}
