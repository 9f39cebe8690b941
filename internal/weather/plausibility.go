package weather

import (
	"fmt"

	"pestwatch/internal/types"
)

// Physically reasonable bounds for a weather sample. Unlike the risk-model
// thresholds these are physical constants, not calibration parameters.
const (
	MinPlausibleTempC   = -10.0
	MaxPlausibleTempC   = 60.0
	MinPlausibleHumPct  = 0.0
	MaxPlausibleHumPct  = 100.0
	MinPlausibleRainMm  = 0.0
	MaxPlausibleRainMm  = 500.0
	MinPlausibleWindMps = 0.0
	MaxPlausibleWindMps = 200.0
)

// IsSuspicious reports whether any field of the sample falls outside its
// physically reasonable bounds. A suspicious primary reading is what triggers
// the secondary-provider fan-out; cross-validation multiplies outbound API
// calls, so it is reserved for readings that actually need it.
func IsSuspicious(s types.WeatherSample) bool {
	return len(SuspiciousFields(s)) > 0
}

// SuspiciousFields returns a description of every out-of-bounds field, for
// logging alongside the discarded sample.
func SuspiciousFields(s types.WeatherSample) []string {
	var fields []string
	if s.TemperatureC < MinPlausibleTempC || s.TemperatureC > MaxPlausibleTempC {
		fields = append(fields, fmt.Sprintf("temperature %.1f°C outside [%.0f,%.0f]", s.TemperatureC, MinPlausibleTempC, MaxPlausibleTempC))
	}
	if s.HumidityPct < MinPlausibleHumPct || s.HumidityPct > MaxPlausibleHumPct {
		fields = append(fields, fmt.Sprintf("humidity %.1f%% outside [%.0f,%.0f]", s.HumidityPct, MinPlausibleHumPct, MaxPlausibleHumPct))
	}
	if s.RainfallMm < MinPlausibleRainMm || s.RainfallMm > MaxPlausibleRainMm {
		fields = append(fields, fmt.Sprintf("rainfall %.1fmm outside [%.0f,%.0f]", s.RainfallMm, MinPlausibleRainMm, MaxPlausibleRainMm))
	}
	if s.WindSpeedMps < MinPlausibleWindMps || s.WindSpeedMps > MaxPlausibleWindMps {
		fields = append(fields, fmt.Sprintf("wind %.1fm/s outside [%.0f,%.0f]", s.WindSpeedMps, MinPlausibleWindMps, MaxPlausibleWindMps))
	}
	return fields
}
