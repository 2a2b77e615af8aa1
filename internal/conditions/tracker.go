// Package conditions combines position, weather, moon and sun into the
// snapshot shown on the conditions view and stored with each strike.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/lunar"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/openmeteo"
	"github.com/ngmaloney/strike-log/internal/solar"
	"github.com/rs/zerolog"
)

// Snapshot is everything known about conditions at one place and instant.
type Snapshot struct {
	At         time.Time                  `json:"at"`
	Fix        models.GPSFix              `json:"gps"`
	Weather    *models.WeatherObservation `json:"env"`
	Assessment environment.Assessment     `json:"assessment"`
	Lunar      lunar.State                `json:"lunar"`
	Sun        solar.Times                `json:"sun"`

	// WeatherErr is set when the weather fetch failed; Weather is then nil.
	WeatherErr error `json:"-"`
	// SunErr is set in polar day or night (solar.ErrPolarDayOrNight).
	SunErr error `json:"-"`
}

// Build assembles a snapshot from already-fetched data. prevPressure is the
// reading from the previous snapshot and may be nil.
func Build(fix models.GPSFix, obs *models.WeatherObservation, prevPressure *float64, clarity string, at time.Time) Snapshot {
	moon := lunar.Compute(at)

	in := environment.Inputs{
		PrevPressureHPa: prevPressure,
		Clarity:         clarity,
		LunarAgeDays:    moon.AgeDays,
	}
	if obs != nil {
		in.WindSpeedKmh = obs.WindSpeedKmh
		in.WindDirectionDeg = obs.WindDirectionDeg
		in.WaveHeightM = obs.WaveHeightM
		in.PressureHPa = obs.PressureHPa
	}

	s := Snapshot{
		At:         at,
		Fix:        fix,
		Weather:    obs,
		Assessment: environment.Assess(in),
		Lunar:      moon,
	}
	s.Sun, s.SunErr = solar.Compute(fix.Lat, fix.Lon, at)
	return s
}

// Tracker produces snapshots and remembers the previous pressure reading so
// consecutive snapshots carry a pressure trend. Safe for concurrent use.
type Tracker struct {
	weather  openmeteo.WeatherClient
	position geocoding.PositionSource
	log      zerolog.Logger

	mu           sync.Mutex
	prevPressure *float64
	last         *Snapshot
}

// NewTracker creates a tracker. weather may be nil for offline use.
func NewTracker(weather openmeteo.WeatherClient, position geocoding.PositionSource, log zerolog.Logger) *Tracker {
	return &Tracker{
		weather:  weather,
		position: position,
		log:      log.With().Str("component", "conditions").Logger(),
	}
}

// Snapshot locates the angler and captures conditions there at at.
func (t *Tracker) Snapshot(ctx context.Context, clarity string, at time.Time) (*Snapshot, error) {
	fix, err := t.position.Locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating: %w", err)
	}
	return t.SnapshotAt(ctx, *fix, clarity, at), nil
}

// SnapshotAt captures conditions at a known position. A weather failure is
// recorded on the snapshot and logged, not returned.
func (t *Tracker) SnapshotAt(ctx context.Context, fix models.GPSFix, clarity string, at time.Time) *Snapshot {
	var (
		obs    *models.WeatherObservation
		obsErr error
	)
	if t.weather != nil {
		obs, obsErr = t.weather.Observation(ctx, fix.Lat, fix.Lon, at)
		if obsErr != nil {
			obs = nil
			t.log.Warn().Err(obsErr).
				Float64("lat", fix.Lat).
				Float64("lon", fix.Lon).
				Msg("weather fetch failed")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := Build(fix, obs, t.prevPressure, clarity, at)
	s.WeatherErr = obsErr
	if obs != nil && obs.PressureHPa != nil {
		p := *obs.PressureHPa
		t.prevPressure = &p
	}
	t.last = &s

	t.log.Debug().
		Str("trend", string(s.Assessment.PressureTrend)).
		Int("score", s.Assessment.Score).
		Str("moon", s.Lunar.PhaseName()).
		Msg("conditions snapshot")
	return &s
}

// Last returns the most recent snapshot, or nil.
func (t *Tracker) Last() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Reset forgets the previous pressure reading, for example when the angler
// moves to a distant spot.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevPressure = nil
	t.last = nil
}

// SunLabels formats sunrise and sunset as HH:MM in loc, or a polar message.
func (s *Snapshot) SunLabels(loc *time.Location) (rise, set string) {
	switch {
	case s.SunErr == nil:
		return s.Sun.Sunrise.In(loc).Format("15:04"), s.Sun.Sunset.In(loc).Format("15:04")
	case errors.Is(s.SunErr, solar.ErrPolarDay):
		return "Up all day", "No sunset today"
	case errors.Is(s.SunErr, solar.ErrPolarNight):
		return "No sunrise today", "Down all day"
	default:
		return environment.NoData, environment.NoData
	}
}
