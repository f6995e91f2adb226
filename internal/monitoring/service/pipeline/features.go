package pipeline

import (
	"math"

	"github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

const (
	// gravity is the expected accelerometer magnitude at rest, m/s².
	gravity = 9.8
	// maWindow is the trailing moving-average window in readings.
	maWindow = 3
)

// EngineerFeatures derives the feature vector for each reading of one zone.
// Readings must be chronological; rates are first differences with 0 for the
// first reading of the zone.
func EngineerFeatures(readings []model.SensorReading, zones zoneconfig.Provider) []model.FeaturedReading {
	if len(readings) == 0 {
		return nil
	}
	zoneID := readings[0].ZoneID
	stability := zones.Stability(zoneID)
	thresholds, hasThresholds := zones.Thresholds(zoneID)

	out := make([]model.FeaturedReading, len(readings))
	for i, r := range readings {
		f := model.FeatureVector{ZoneStability: stability}

		if i > 0 {
			prev := readings[i-1]
			f.DisplacementRate = r.DisplacementMM - prev.DisplacementMM
			f.VibrationRate = r.VibrationMMS - prev.VibrationMMS
			f.TemperatureRate = r.TemperatureC - prev.TemperatureC
		}

		start := i - maWindow + 1
		if start < 0 {
			start = 0
		}
		var dSum, vSum float64
		for _, w := range readings[start : i+1] {
			dSum += w.DisplacementMM
			vSum += w.VibrationMMS
		}
		n := float64(i + 1 - start)
		f.DisplacementMA = dSum / n
		f.VibrationMA = vSum / n

		f.AccelMagnitude = math.Sqrt(r.AccelerometerX*r.AccelerometerX +
			r.AccelerometerY*r.AccelerometerY +
			r.AccelerometerZ*r.AccelerometerZ)
		f.GravityDeviation = math.Abs(f.AccelMagnitude - gravity)

		// Comfort deviation from 22°C / 60% RH.
		f.WeatherIndex = (r.TemperatureC-22)*(r.TemperatureC-22) +
			(r.HumidityPct-60)*(r.HumidityPct-60)/100

		if hasThresholds {
			f.DisplacementFlag = flagFor(r.DisplacementMM, thresholds.DisplacementWarning, thresholds.DisplacementCritical)
			f.VibrationFlag = flagFor(r.VibrationMMS, thresholds.VibrationWarning, thresholds.VibrationCritical)
		}

		out[i] = model.FeaturedReading{SensorReading: r, Features: f}
	}
	return out
}

func flagFor(value, warning, critical float64) model.ThresholdFlag {
	switch {
	case critical > 0 && value >= critical:
		return model.FlagCritical
	case warning > 0 && value >= warning:
		return model.FlagWarning
	default:
		return model.FlagNormal
	}
}
