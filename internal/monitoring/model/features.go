package model

// ThresholdFlag marks how a single value sits against its zone thresholds.
type ThresholdFlag int

const (
	FlagNormal   ThresholdFlag = 0
	FlagWarning  ThresholdFlag = 1
	FlagCritical ThresholdFlag = 2
)

// FeatureVector holds the derived fields for one reading. Computed fresh each
// batch and never persisted apart from the reading it augments.
type FeatureVector struct {
	DisplacementRate  float64 `json:"displacement_rate"`
	VibrationRate     float64 `json:"vibration_rate"`
	TemperatureRate   float64 `json:"temperature_rate"`
	DisplacementMA    float64 `json:"displacement_ma"`
	VibrationMA       float64 `json:"vibration_ma"`
	AccelMagnitude    float64 `json:"acceleration_magnitude"`
	GravityDeviation  float64 `json:"gravity_deviation"`
	WeatherIndex      float64 `json:"weather_index"`
	ZoneStability     float64 `json:"zone_stability"`

	DisplacementFlag ThresholdFlag `json:"displacement_risk_flag"`
	VibrationFlag    ThresholdFlag `json:"vibration_risk_flag"`
}

// FeaturedReading pairs a cleaned reading with its derived features.
type FeaturedReading struct {
	SensorReading
	Features FeatureVector `json:"features"`
}
