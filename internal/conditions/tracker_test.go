package conditions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/solar"
	"github.com/rs/zerolog"
)

// mockWeather returns queued observations in order, repeating the last one.
type mockWeather struct {
	mu    sync.Mutex
	obs   []*models.WeatherObservation
	err   error
	calls int
}

func (m *mockWeather) Observation(ctx context.Context, lat, lon float64, at time.Time) (*models.WeatherObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls - 1
	if i >= len(m.obs) {
		i = len(m.obs) - 1
	}
	return m.obs[i], nil
}

var chatham = models.GPSFix{Lat: 41.68, Lon: -69.96}

func TestTracker_PressureTrendAcrossSnapshots(t *testing.T) {
	weather := &mockWeather{obs: []*models.WeatherObservation{
		{PressureHPa: models.Float(1010), WindSpeedKmh: models.Float(15)},
		{PressureHPa: models.Float(1011), WindSpeedKmh: models.Float(15)},
		{WindSpeedKmh: models.Float(15)}, // pressure missing
		{PressureHPa: models.Float(1008), WindSpeedKmh: models.Float(15)},
	}}
	tracker := NewTracker(weather, geocoding.NewLocator(&chatham), zerolog.Nop())
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	want := []environment.PressureTrend{
		environment.TrendUnknown,     // no previous reading
		environment.TrendRising,      // +1
		environment.TrendUnknown,     // current missing
		environment.TrendFallingFast, // 1011 -> 1008, the missing reading is skipped
	}

	for i, w := range want {
		s, err := tracker.Snapshot(context.Background(), "clear", at.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("Snapshot() #%d error = %v", i, err)
		}
		if s.Assessment.PressureTrend != w {
			t.Errorf("snapshot #%d trend = %q, want %q", i, s.Assessment.PressureTrend, w)
		}
	}

	if tracker.Last() == nil {
		t.Fatal("Last() = nil after snapshots")
	}

	tracker.Reset()
	if tracker.Last() != nil {
		t.Error("Last() should be nil after Reset")
	}
	s, _ := tracker.Snapshot(context.Background(), "", at)
	if s.Assessment.PressureTrend != environment.TrendUnknown {
		t.Errorf("trend after Reset = %q, want unknown", s.Assessment.PressureTrend)
	}
}

func TestTracker_WeatherFailureStillSnapshots(t *testing.T) {
	weather := &mockWeather{err: errors.New("offline")}
	tracker := NewTracker(weather, geocoding.NewLocator(&chatham), zerolog.Nop())

	at := time.Date(2024, 1, 11, 11, 57, 0, 0, time.UTC)
	s, err := tracker.Snapshot(context.Background(), "turbid", at)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if s.Weather != nil || s.WeatherErr == nil {
		t.Errorf("Weather = %v, WeatherErr = %v; want nil weather and an error", s.Weather, s.WeatherErr)
	}
	if s.Assessment.SeaState != environment.SeaStateUnknown {
		t.Errorf("SeaState = %q, want unknown", s.Assessment.SeaState)
	}
	// turbid only: 5 - 1
	if s.Assessment.Score != 4 {
		t.Errorf("Score = %d, want 4", s.Assessment.Score)
	}
	if s.Lunar.IlluminationPct > 5 {
		t.Errorf("new moon illumination = %v", s.Lunar.IlluminationPct)
	}
	if s.SunErr != nil {
		t.Errorf("SunErr = %v at mid latitude", s.SunErr)
	}
}

func TestTracker_NoPosition(t *testing.T) {
	tracker := NewTracker(nil, geocoding.NewLocator(nil), zerolog.Nop())
	_, err := tracker.Snapshot(context.Background(), "", time.Now())
	if !errors.Is(err, geocoding.ErrNoPosition) {
		t.Errorf("Snapshot() error = %v, want ErrNoPosition", err)
	}
}

func TestTracker_Offline(t *testing.T) {
	tracker := NewTracker(nil, geocoding.NewLocator(&chatham), zerolog.Nop())
	s, err := tracker.Snapshot(context.Background(), "", time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if s.Weather != nil || s.WeatherErr != nil {
		t.Errorf("offline snapshot should have no weather and no error: %+v", s)
	}
	if s.Assessment.Score != 5 {
		t.Errorf("Score = %d, want baseline 5", s.Assessment.Score)
	}
}

func TestBuild(t *testing.T) {
	obs := &models.WeatherObservation{
		WindSpeedKmh:     models.Float(20),
		WindDirectionDeg: models.Float(90),
		WaveHeightM:      models.Float(1.2),
		PressureHPa:      models.Float(1012),
	}
	at := time.Date(2025, 6, 21, 15, 0, 0, 0, time.UTC)

	s := Build(chatham, obs, models.Float(1014), "semi-turbid", at)

	if s.Assessment.WindCardinal8 != "E" {
		t.Errorf("WindCardinal8 = %q, want E", s.Assessment.WindCardinal8)
	}
	if s.Assessment.SeaState != environment.SeaChoppy {
		t.Errorf("SeaState = %q, want choppy", s.Assessment.SeaState)
	}
	if s.Assessment.PressureTrend != environment.TrendFallingFast {
		t.Errorf("PressureTrend = %q, want falling fast", s.Assessment.PressureTrend)
	}
	if s.Assessment.Tide != environment.TideTrendOf(s.Lunar.AgeDays) {
		t.Errorf("Tide = %q, not derived from lunar age %v", s.Assessment.Tide, s.Lunar.AgeDays)
	}
	if !s.Sun.Sunrise.Before(at) || !s.Sun.Sunset.After(at) {
		t.Errorf("sun %v-%v should bracket mid-afternoon %v", s.Sun.Sunrise, s.Sun.Sunset, at)
	}
}

func TestSnapshot_SunLabels(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	winter := time.Date(2025, 12, 21, 12, 0, 0, 0, time.UTC)

	s := Build(chatham, nil, nil, "", winter)
	rise, set := s.SunLabels(est)
	if len(rise) != 5 || rise[2] != ':' || len(set) != 5 {
		t.Errorf("SunLabels() = %q, %q; want HH:MM", rise, set)
	}
	if rise[:2] != "07" || set[:2] != "16" {
		t.Errorf("Chatham winter solstice sun = %s-%s, want 07:xx-16:xx", rise, set)
	}

	svalbard := models.GPSFix{Lat: 78.22, Lon: 15.65}
	tests := []struct {
		name      string
		at        time.Time
		rise, set string
		err       error
	}{
		{"midnight sun", time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC), "Up all day", "No sunset today", solar.ErrPolarDay},
		{"polar night", winter, "No sunrise today", "Down all day", solar.ErrPolarNight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Build(svalbard, nil, nil, "", tt.at)
			if !errors.Is(s.SunErr, tt.err) || !errors.Is(s.SunErr, solar.ErrPolarDayOrNight) {
				t.Fatalf("SunErr = %v, want %v", s.SunErr, tt.err)
			}
			rise, set := s.SunLabels(time.UTC)
			if rise != tt.rise || set != tt.set {
				t.Errorf("SunLabels() = %q, %q; want %q, %q", rise, set, tt.rise, tt.set)
			}
		})
	}
}
