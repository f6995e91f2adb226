package pipeline

import (
	"math"

	"github.com/slopewatch/slopewatch/internal/monitoring/model"
)

const (
	// minStatSamples is the minimum zone batch size before the 3-sigma rule
	// activates.
	minStatSamples = 5
	statSigma      = 3.0
	highSeverityAt = 1.5
	spikeSigma     = 2.0
)

// DetectAnomalies runs statistical outlier and rate spike detection over one
// zone's batch. Detections are informational; they never create alerts by
// themselves.
func DetectAnomalies(featured []model.FeaturedReading) []model.Anomaly {
	var anomalies []model.Anomaly

	columns := []struct {
		name string
		get  func(model.FeaturedReading) float64
	}{
		{model.AnomalyDisplacementStatistical, func(fr model.FeaturedReading) float64 { return fr.DisplacementMM }},
		{model.AnomalyVibrationStatistical, func(fr model.FeaturedReading) float64 { return fr.VibrationMMS }},
	}
	if len(featured) > minStatSamples {
		for _, col := range columns {
			mean, std := meanStd(featured, col.get)
			threshold := mean + statSigma*std
			if std <= 0 {
				continue
			}
			for _, fr := range featured {
				v := col.get(fr)
				if v <= threshold {
					continue
				}
				severity := model.SeverityMedium
				if v > threshold*highSeverityAt {
					severity = model.SeverityHigh
				}
				anomalies = append(anomalies, model.Anomaly{
					Timestamp: fr.Timestamp,
					ZoneID:    fr.ZoneID,
					Type:      col.name,
					Value:     v,
					Threshold: threshold,
					Severity:  severity,
				})
			}
		}
	}

	rateColumns := []struct {
		name string
		get  func(model.FeaturedReading) float64
	}{
		{model.AnomalyDisplacementRateSpike, func(fr model.FeaturedReading) float64 { return fr.Features.DisplacementRate }},
		{model.AnomalyVibrationRateSpike, func(fr model.FeaturedReading) float64 { return fr.Features.VibrationRate }},
	}
	for _, col := range rateColumns {
		_, std := meanStd(featured, col.get)
		if std <= 0 {
			continue
		}
		limit := spikeSigma * std
		for _, fr := range featured {
			v := col.get(fr)
			if math.Abs(v) <= limit {
				continue
			}
			anomalies = append(anomalies, model.Anomaly{
				Timestamp: fr.Timestamp,
				ZoneID:    fr.ZoneID,
				Type:      col.name,
				Value:     v,
				Threshold: limit,
				Severity:  model.SeverityMedium,
			})
		}
	}

	return anomalies
}

// meanStd returns the mean and sample standard deviation of one column.
func meanStd(featured []model.FeaturedReading, get func(model.FeaturedReading) float64) (float64, float64) {
	n := len(featured)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, fr := range featured {
		sum += get(fr)
	}
	mean := sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, fr := range featured {
		d := get(fr) - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
