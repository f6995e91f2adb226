package model

import "time"

// RawReading is a sensor payload as received from the ingestion edge.
// Numeric fields are pointers so missing values survive decoding and can be
// imputed deterministically instead of silently becoming zero.
type RawReading struct {
	ZoneID         string     `json:"zone_id"`
	Timestamp      time.Time  `json:"timestamp"`
	DisplacementMM *float64   `json:"displacement_mm"`
	VibrationMMS   *float64   `json:"vibration_mm_s"`
	TemperatureC   *float64   `json:"temperature_c"`
	HumidityPct    *float64   `json:"humidity_percent"`
	PressureKPa    *float64   `json:"pressure_kpa"`
	AccelerometerX *float64   `json:"accelerometer_x"`
	AccelerometerY *float64   `json:"accelerometer_y"`
	AccelerometerZ *float64   `json:"accelerometer_z"`
}

// SensorReading is a cleaned, fully populated reading. Immutable once
// produced; one per (zone, timestamp).
type SensorReading struct {
	ZoneID         string    `json:"zone_id"`
	Timestamp      time.Time `json:"timestamp"`
	DisplacementMM float64   `json:"displacement_mm"`
	VibrationMMS   float64   `json:"vibration_mm_s"`
	TemperatureC   float64   `json:"temperature_c"`
	HumidityPct    float64   `json:"humidity_percent"`
	PressureKPa    float64   `json:"pressure_kpa"`
	AccelerometerX float64   `json:"accelerometer_x"`
	AccelerometerY float64   `json:"accelerometer_y"`
	AccelerometerZ float64   `json:"accelerometer_z"`
}

// SensorSnapshot is the subset of a reading frozen onto an alert record.
type SensorSnapshot struct {
	DisplacementMM float64 `json:"displacement_mm"`
	VibrationMMS   float64 `json:"vibration_mm_s"`
	TemperatureC   float64 `json:"temperature_c"`
	HumidityPct    float64 `json:"humidity_percent"`
}

func (r SensorReading) Snapshot() SensorSnapshot {
	return SensorSnapshot{
		DisplacementMM: r.DisplacementMM,
		VibrationMMS:   r.VibrationMMS,
		TemperatureC:   r.TemperatureC,
		HumidityPct:    r.HumidityPct,
	}
}
