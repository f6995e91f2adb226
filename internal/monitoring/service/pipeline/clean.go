package pipeline

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

// Sensor value clamp ranges. Out-of-range values are clipped, not rejected.
const (
	minTemperature  = -20.0
	maxTemperature  = 60.0
	minHumidity     = 0.0
	maxHumidity     = 100.0
	minPressure     = 90.0
	maxPressure     = 110.0
	minDisplacement = 0.0
	maxDisplacement = 50.0
	minVibration    = 0.0
	maxVibration    = 20.0
)

// CleanResult is the outcome of ingesting one raw batch.
type CleanResult struct {
	// ByZone holds cleaned readings grouped by zone, chronological within
	// each zone.
	ByZone map[string][]model.SensorReading
	// Dropped counts readings rejected for unknown zones, duplicate
	// (zone, timestamp) pairs, or un-imputable missing fields.
	Dropped int
}

// Clean validates a raw batch: drops readings for zones absent from the
// config, dedupes on (zone, timestamp), imputes missing numeric fields with
// the per-zone batch median, and clamps values into sensor range.
func Clean(batch []model.RawReading, zones zoneconfig.Provider) CleanResult {
	res := CleanResult{ByZone: make(map[string][]model.SensorReading)}

	grouped := make(map[string][]model.RawReading)
	seen := make(map[string]map[int64]bool)
	for _, r := range batch {
		if _, ok := zones.Zone(r.ZoneID); !ok {
			log.Warn().Str("zone", r.ZoneID).Time("ts", r.Timestamp).Msg("dropping reading for unknown zone")
			res.Dropped++
			continue
		}
		if seen[r.ZoneID] == nil {
			seen[r.ZoneID] = make(map[int64]bool)
		}
		ts := r.Timestamp.UnixNano()
		if seen[r.ZoneID][ts] {
			res.Dropped++
			continue
		}
		seen[r.ZoneID][ts] = true
		grouped[r.ZoneID] = append(grouped[r.ZoneID], r)
	}

	for zoneID, raws := range grouped {
		med := zoneMedians(raws)
		cleaned := make([]model.SensorReading, 0, len(raws))
		for _, r := range raws {
			sr, ok := finalize(r, med)
			if !ok {
				log.Warn().Str("zone", zoneID).Time("ts", r.Timestamp).Msg("dropping reading with un-imputable fields")
				res.Dropped++
				continue
			}
			cleaned = append(cleaned, sr)
		}
		if len(cleaned) == 0 {
			continue
		}
		sort.Slice(cleaned, func(i, j int) bool { return cleaned[i].Timestamp.Before(cleaned[j].Timestamp) })
		res.ByZone[zoneID] = cleaned
	}
	return res
}

type medians struct {
	displacement, vibration, temperature, humidity, pressure *float64
	accelX, accelY, accelZ                                   *float64
}

func zoneMedians(raws []model.RawReading) medians {
	collect := func(get func(model.RawReading) *float64) *float64 {
		vals := make([]float64, 0, len(raws))
		for _, r := range raws {
			if v := get(r); v != nil {
				vals = append(vals, *v)
			}
		}
		if len(vals) == 0 {
			return nil
		}
		m := median(vals)
		return &m
	}
	return medians{
		displacement: collect(func(r model.RawReading) *float64 { return r.DisplacementMM }),
		vibration:    collect(func(r model.RawReading) *float64 { return r.VibrationMMS }),
		temperature:  collect(func(r model.RawReading) *float64 { return r.TemperatureC }),
		humidity:     collect(func(r model.RawReading) *float64 { return r.HumidityPct }),
		pressure:     collect(func(r model.RawReading) *float64 { return r.PressureKPa }),
		accelX:       collect(func(r model.RawReading) *float64 { return r.AccelerometerX }),
		accelY:       collect(func(r model.RawReading) *float64 { return r.AccelerometerY }),
		accelZ:       collect(func(r model.RawReading) *float64 { return r.AccelerometerZ }),
	}
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// finalize fills missing fields from the zone medians and clamps into range.
// Returns false when a field is missing and the zone has no samples to
// impute from.
func finalize(r model.RawReading, med medians) (model.SensorReading, bool) {
	pick := func(v, m *float64) (float64, bool) {
		if v != nil {
			return *v, true
		}
		if m != nil {
			return *m, true
		}
		return 0, false
	}

	var sr model.SensorReading
	var ok bool
	sr.ZoneID = r.ZoneID
	sr.Timestamp = r.Timestamp
	if sr.DisplacementMM, ok = pick(r.DisplacementMM, med.displacement); !ok {
		return sr, false
	}
	if sr.VibrationMMS, ok = pick(r.VibrationMMS, med.vibration); !ok {
		return sr, false
	}
	if sr.TemperatureC, ok = pick(r.TemperatureC, med.temperature); !ok {
		return sr, false
	}
	if sr.HumidityPct, ok = pick(r.HumidityPct, med.humidity); !ok {
		return sr, false
	}
	if sr.PressureKPa, ok = pick(r.PressureKPa, med.pressure); !ok {
		return sr, false
	}
	if sr.AccelerometerX, ok = pick(r.AccelerometerX, med.accelX); !ok {
		return sr, false
	}
	if sr.AccelerometerY, ok = pick(r.AccelerometerY, med.accelY); !ok {
		return sr, false
	}
	if sr.AccelerometerZ, ok = pick(r.AccelerometerZ, med.accelZ); !ok {
		return sr, false
	}

	sr.DisplacementMM = clamp(sr.DisplacementMM, minDisplacement, maxDisplacement)
	sr.VibrationMMS = clamp(sr.VibrationMMS, minVibration, maxVibration)
	sr.TemperatureC = clamp(sr.TemperatureC, minTemperature, maxTemperature)
	sr.HumidityPct = clamp(sr.HumidityPct, minHumidity, maxHumidity)
	sr.PressureKPa = clamp(sr.PressureKPa, minPressure, maxPressure)
	return sr, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
