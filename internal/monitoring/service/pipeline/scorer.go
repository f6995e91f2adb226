package pipeline

import (
	"github.com/slopewatch/slopewatch/internal/monitoring/model"
)

// Composite score weights. Displacement and vibration dominate; the rate
// terms capture acceleration of movement; gravity deviation and weather are
// weak modifiers.
const (
	weightDisplacement     = 0.30
	weightVibration        = 0.30
	weightDisplacementRate = 0.15
	weightVibrationRate    = 0.15
	weightGravityDeviation = 0.05
	weightWeatherIndex     = 0.05
)

// Normalized feature names used in RiskAssessment.Contributions.
const (
	FeatDisplacement     = "displacement_mm"
	FeatVibration        = "vibration_mm_s"
	FeatDisplacementRate = "displacement_rate"
	FeatVibrationRate    = "vibration_rate"
	FeatGravityDeviation = "gravity_deviation"
	FeatWeatherIndex     = "weather_index"
)

// ScoreZone min-max normalizes the scoring features over one zone's batch
// window and blends them into the 0-10 risk score for the zone's latest
// reading. A feature with max == min normalizes to 0 for every reading.
func ScoreZone(featured []model.FeaturedReading) *model.RiskAssessment {
	if len(featured) == 0 {
		return nil
	}

	norms := map[string][]float64{
		FeatDisplacement:     minMax(featured, func(fr model.FeaturedReading) float64 { return fr.DisplacementMM }),
		FeatVibration:        minMax(featured, func(fr model.FeaturedReading) float64 { return fr.VibrationMMS }),
		FeatDisplacementRate: minMax(featured, func(fr model.FeaturedReading) float64 { return fr.Features.DisplacementRate }),
		FeatVibrationRate:    minMax(featured, func(fr model.FeaturedReading) float64 { return fr.Features.VibrationRate }),
		FeatGravityDeviation: minMax(featured, func(fr model.FeaturedReading) float64 { return fr.Features.GravityDeviation }),
		FeatWeatherIndex:     minMax(featured, func(fr model.FeaturedReading) float64 { return fr.Features.WeatherIndex }),
	}

	last := len(featured) - 1
	latest := featured[last]

	composite := weightDisplacement*norms[FeatDisplacement][last] +
		weightVibration*norms[FeatVibration][last] +
		weightDisplacementRate*norms[FeatDisplacementRate][last] +
		weightVibrationRate*norms[FeatVibrationRate][last] +
		weightGravityDeviation*norms[FeatGravityDeviation][last] +
		weightWeatherIndex*norms[FeatWeatherIndex][last]

	stability := latest.Features.ZoneStability
	if stability <= 0 {
		stability = 1
	}
	adjusted := composite / stability
	score := clamp(adjusted*10, 0, 10)

	contributions := make(map[string]float64, len(norms))
	for name, vals := range norms {
		contributions[name] = vals[last]
	}

	return &model.RiskAssessment{
		ZoneID:         latest.ZoneID,
		Timestamp:      latest.Timestamp,
		CompositeScore: composite,
		Score:          score,
		Category:       model.CategoryForScore(score),
		Contributions:  contributions,
	}
}

// minMax returns the per-reading min-max normalized values of one feature
// over the batch. Degenerate ranges (max == min) normalize to zero.
func minMax(featured []model.FeaturedReading, get func(model.FeaturedReading) float64) []float64 {
	lo, hi := get(featured[0]), get(featured[0])
	for _, fr := range featured[1:] {
		v := get(fr)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(featured))
	if hi <= lo {
		return out
	}
	for i, fr := range featured {
		out[i] = (get(fr) - lo) / (hi - lo)
	}
	return out
}
