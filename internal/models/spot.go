package models

import "time"

// Spot is a reusable, named fishing location.
type Spot struct {
	ID         string              `json:"id"`
	Name       string              `json:"name" validate:"required"`
	Lat        float64             `json:"lat" validate:"gte=-90,lte=90"`
	Lon        float64             `json:"lon" validate:"gte=-180,lte=180"`
	DepthM     float64             `json:"depth" validate:"gte=0"`
	BottomType string              `json:"bottom_type,omitempty"`
	Weather    *WeatherObservation `json:"weather"`
	LastUpdate *time.Time          `json:"last_update"`
}

// HasWeather reports whether weather has been fetched for the spot.
func (s *Spot) HasWeather() bool {
	return s.Weather != nil && s.LastUpdate != nil
}
