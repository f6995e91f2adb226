// Package classifier defines the optional risk classifier contract. The
// engine's rule-based scoring is authoritative; a classifier may only raise
// the category, never lower it, so everything works with no classifier wired.
package classifier

import (
	"context"

	"github.com/slopewatch/slopewatch/internal/monitoring/model"
)

// MinConfidence is the confidence below which a prediction is ignored.
const MinConfidence = 0.75

// Prediction is a classifier output for one zone assessment.
type Prediction struct {
	Label      model.RiskCategory `json:"label"`
	Confidence float64            `json:"confidence"`
}

// Classifier is a swappable black box consulted during scoring.
type Classifier interface {
	Predict(ctx context.Context, features model.FeatureVector, assessment *model.RiskAssessment) (Prediction, error)
}

// Apply blends a prediction into an assessment: a confident prediction may
// raise the category (and floors the score at the category's lower bound),
// while low-confidence or downgrade predictions leave it untouched.
func Apply(assessment *model.RiskAssessment, p Prediction) {
	if assessment == nil || p.Confidence < MinConfidence {
		return
	}
	if rank(p.Label) <= rank(assessment.Category) {
		return
	}
	assessment.Category = p.Label
	if floor := categoryFloor(p.Label); assessment.Score < floor {
		assessment.Score = floor
	}
}

func rank(c model.RiskCategory) int {
	switch c {
	case model.RiskHigh:
		return 1
	case model.RiskCritical:
		return 2
	default:
		return 0
	}
}

func categoryFloor(c model.RiskCategory) float64 {
	switch c {
	case model.RiskHigh:
		return 3
	case model.RiskCritical:
		return 6
	default:
		return 0
	}
}
