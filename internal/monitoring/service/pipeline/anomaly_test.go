package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

func featuredBatch(t *testing.T, displacements, vibrations []float64) []model.FeaturedReading {
	t.Helper()
	require.Equal(t, len(displacements), len(vibrations))
	zones := newStaticZones(zoneconfig.Zone{ID: "zone_a"})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	readings := make([]model.SensorReading, len(displacements))
	for i := range displacements {
		readings[i] = sensorReading("zone_a", base.Add(time.Duration(i)*time.Minute), displacements[i], vibrations[i])
	}
	return EngineerFeatures(readings, zones)
}

func ofType(anomalies []model.Anomaly, typ string) []model.Anomaly {
	var out []model.Anomaly
	for _, a := range anomalies {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestDetectAnomaliesConstantBatch(t *testing.T) {
	d := make([]float64, 10)
	v := make([]float64, 10)
	for i := range d {
		d[i] = 2.0
		v[i] = 0.5
	}
	assert.Empty(t, DetectAnomalies(featuredBatch(t, d, v)))
}

func TestDetectAnomaliesRequiresMinimumSamples(t *testing.T) {
	// Five readings stay below the statistical sample floor even with an
	// extreme outlier. The outlier sits mid-batch so the jump up and the
	// drop back each stay under two sigma of the rate column.
	d := []float64{0.1, 0.1, 30.0, 0.1, 0.1}
	v := []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	assert.Empty(t, DetectAnomalies(featuredBatch(t, d, v)))
}

func TestDetectAnomaliesRateSpikeHasNoSampleFloor(t *testing.T) {
	// A trailing jump concentrates all the variance in one rate value, so
	// the spike check fires even below the statistical sample floor.
	d := []float64{0.1, 0.1, 0.1, 0.1, 30.0}
	v := []float64{0.5, 0.5, 0.5, 0.5, 0.5}

	anomalies := DetectAnomalies(featuredBatch(t, d, v))

	spikes := ofType(anomalies, model.AnomalyDisplacementRateSpike)
	require.Len(t, spikes, 1)
	assert.Equal(t, model.SeverityMedium, spikes[0].Severity)
	assert.InDelta(t, 29.9, spikes[0].Value, 1e-9)
	assert.Greater(t, spikes[0].Value, spikes[0].Threshold)

	assert.Empty(t, ofType(anomalies, model.AnomalyDisplacementStatistical))
	assert.Empty(t, ofType(anomalies, model.AnomalyVibrationStatistical))
}

func TestDetectAnomaliesHighSeverityOutlier(t *testing.T) {
	// A long flat baseline keeps the sample deviation small enough for the
	// final outlier to clear 1.5x the 3-sigma threshold.
	d := make([]float64, 30)
	v := make([]float64, 30)
	for i := range d {
		d[i] = 0.1
		v[i] = 0.5
	}
	d[29] = 10.1

	anomalies := DetectAnomalies(featuredBatch(t, d, v))

	stat := ofType(anomalies, model.AnomalyDisplacementStatistical)
	require.Len(t, stat, 1)
	assert.Equal(t, model.SeverityHigh, stat[0].Severity)
	assert.Equal(t, 10.1, stat[0].Value)
	assert.Greater(t, stat[0].Value, stat[0].Threshold)

	// The jump into the outlier also registers as a rate spike.
	spikes := ofType(anomalies, model.AnomalyDisplacementRateSpike)
	require.Len(t, spikes, 1)
	assert.Equal(t, model.SeverityMedium, spikes[0].Severity)
	assert.InDelta(t, 10.0, spikes[0].Value, 1e-9)

	assert.Empty(t, ofType(anomalies, model.AnomalyVibrationStatistical))
}

func TestDetectAnomaliesMediumSeverityAndSpikes(t *testing.T) {
	d := make([]float64, 12)
	v := make([]float64, 12)
	for i := range d {
		d[i] = 1.0
		v[i] = 0.5
	}
	v[6] = 3.0

	anomalies := DetectAnomalies(featuredBatch(t, d, v))

	stat := ofType(anomalies, model.AnomalyVibrationStatistical)
	require.Len(t, stat, 1)
	// Above threshold but under 1.5x of it.
	assert.Equal(t, model.SeverityMedium, stat[0].Severity)
	assert.Equal(t, 3.0, stat[0].Value)

	// Both the jump up and the drop back exceed two sigma of the rates.
	spikes := ofType(anomalies, model.AnomalyVibrationRateSpike)
	require.Len(t, spikes, 2)
	assert.InDelta(t, 2.5, spikes[0].Value, 1e-9)
	assert.InDelta(t, -2.5, spikes[1].Value, 1e-9)

	assert.Empty(t, ofType(anomalies, model.AnomalyDisplacementStatistical))
	assert.Empty(t, ofType(anomalies, model.AnomalyDisplacementRateSpike))
}
