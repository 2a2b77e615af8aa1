package models

import "time"

// WeatherObservation is a single hour of weather at a location.
// Every physical quantity is optional; nil means the provider had no value.
type WeatherObservation struct {
	WindSpeedKmh     *float64  `json:"wind_speed,omitempty"`     // km/h at 10 m
	WindDirectionDeg *float64  `json:"wind_direction,omitempty"` // degrees, meteorological (from)
	AirTempC         *float64  `json:"air_temp,omitempty"`
	WaterTempC       *float64  `json:"water_temp,omitempty"` // sea surface
	PressureHPa      *float64  `json:"pressure,omitempty"`   // mean sea level
	WaveHeightM      *float64  `json:"wave_height,omitempty"`
	CloudCoverPct    *float64  `json:"cloud_cover,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// IsEmpty reports whether the observation carries no values at all.
func (w *WeatherObservation) IsEmpty() bool {
	if w == nil {
		return true
	}
	return w.WindSpeedKmh == nil && w.WindDirectionDeg == nil && w.AirTempC == nil &&
		w.WaterTempC == nil && w.PressureHPa == nil && w.WaveHeightM == nil &&
		w.CloudCoverPct == nil
}

// Float returns a pointer to v, for building observations in code.
func Float(v float64) *float64 {
	return &v
}
