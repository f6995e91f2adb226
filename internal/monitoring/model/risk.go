package model

import "time"

// RiskCategory buckets the 0-10 risk score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskHigh     RiskCategory = "high"
	RiskCritical RiskCategory = "critical"
)

// CategoryForScore maps a 0-10 score onto its category:
// [0,3) low, [3,6) high, [6,10] critical.
func CategoryForScore(score float64) RiskCategory {
	switch {
	case score < 3:
		return RiskLow
	case score < 6:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// RiskAssessment is the per-zone scoring result for one evaluation cycle.
// Derived, recomputed every cycle; consumers may cache it but the engine
// does not persist it.
type RiskAssessment struct {
	ZoneID         string             `json:"zone_id"`
	Timestamp      time.Time          `json:"timestamp"`
	CompositeScore float64            `json:"composite_score"` // weighted blend before stability adjustment
	Score          float64            `json:"risk_score"`      // 0-10
	Category       RiskCategory       `json:"risk_category"`
	Contributions  map[string]float64 `json:"contributions"` // normalized per-feature inputs
}
