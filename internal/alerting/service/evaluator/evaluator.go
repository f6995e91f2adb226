// Package evaluator turns one zone's latest reading, risk assessment, and
// anomaly set into an optional alert candidate.
package evaluator

import (
	"github.com/slopewatch/slopewatch/internal/alerting/model"
	monmodel "github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

// Risk-score trigger levels on the 0-10 scale. Fixed, not zone-configurable.
const (
	criticalScore = 8.0
	warningScore  = 6.0
)

// Evaluate runs the ordered threshold checks for one zone. Each check may
// only raise the candidate level, never lower it. A nil return means the
// zone is quiet this cycle.
//
// Zone thresholds are positive sensor levels; a zero value means the
// threshold is not configured and its check is disabled. A zone cannot be
// configured to alert at exactly zero displacement or vibration.
func Evaluate(reading monmodel.SensorReading, assessment *monmodel.RiskAssessment, anomalies []monmodel.Anomaly, thresholds zoneconfig.Thresholds) *model.Candidate {
	var level model.Level
	var reasons []string

	raise := func(to model.Level, reason string) {
		if level != model.LevelCritical {
			level = to
		}
		reasons = append(reasons, reason)
	}

	if thresholds.DisplacementCritical > 0 && reading.DisplacementMM >= thresholds.DisplacementCritical {
		level = model.LevelCritical
		reasons = append(reasons, model.ReasonCriticalDisplacement)
	} else if thresholds.DisplacementWarning > 0 && reading.DisplacementMM >= thresholds.DisplacementWarning {
		raise(model.LevelWarning, model.ReasonHighDisplacement)
	}

	if thresholds.VibrationCritical > 0 && reading.VibrationMMS >= thresholds.VibrationCritical {
		level = model.LevelCritical
		reasons = append(reasons, model.ReasonCriticalVibration)
	} else if thresholds.VibrationWarning > 0 && reading.VibrationMMS >= thresholds.VibrationWarning {
		raise(model.LevelWarning, model.ReasonHighVibration)
	}

	var riskScore float64
	if assessment != nil {
		riskScore = assessment.Score
	}
	if riskScore >= criticalScore {
		level = model.LevelCritical
		reasons = append(reasons, model.ReasonCriticalRiskScore)
	} else if riskScore >= warningScore {
		raise(model.LevelWarning, model.ReasonHighRiskScore)
	}

	if level == "" {
		return nil
	}

	// Anomalies never trigger on their own but strengthen a firing candidate.
	if len(anomalies) > 0 {
		reasons = append(reasons, model.ReasonAnomalyDetected)
	}
	if len(reasons) > 1 {
		reasons = append(reasons, model.ReasonMultipleFactors)
	}

	return &model.Candidate{
		Level:          level,
		TriggerReasons: reasons,
		RiskScore:      riskScore,
	}
}
