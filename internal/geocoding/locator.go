package geocoding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ngmaloney/strike-log/internal/models"
)

// Fix sources.
const (
	SourceConfig   = "config"
	SourceGeocoder = "geocoder"
	SourceManual   = "manual"
	SourceSpot     = "spot"
)

// ErrNoPosition means no position has been configured or set yet.
var ErrNoPosition = errors.New("no position available")

// PositionSource provides the angler's current position.
type PositionSource interface {
	Locate(ctx context.Context) (*models.GPSFix, error)
}

// Locator holds the current position. It starts from the configured home
// position (if any) and is moved by Set, typically after a geocode lookup
// or when a spot is selected. It is safe for concurrent use.
type Locator struct {
	mu   sync.Mutex
	fix  *models.GPSFix
	last time.Time
	now  func() time.Time
}

// NewLocator returns a Locator starting at home, which may be nil.
func NewLocator(home *models.GPSFix) *Locator {
	l := &Locator{now: time.Now}
	if home != nil {
		h := *home
		if h.Source == "" {
			h.Source = SourceConfig
		}
		l.fix = &h
		l.last = l.now()
	}
	return l
}

// Locate returns a copy of the current position stamped with the current time.
func (l *Locator) Locate(ctx context.Context) (*models.GPSFix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fix == nil {
		return nil, ErrNoPosition
	}
	fix := *l.fix
	fix.At = l.now()
	return &fix, nil
}

// Set replaces the current position.
func (l *Locator) Set(fix models.GPSFix) error {
	if err := models.Validate(&fix); err != nil {
		return fmt.Errorf("setting position: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fix = &fix
	l.last = l.now()
	return nil
}

// Smooth blends fix into the current position, 70% previous and 30% new,
// keeping the better accuracy. With no previous position it behaves like Set.
func (l *Locator) Smooth(fix models.GPSFix) error {
	l.mu.Lock()
	prev := l.fix
	l.mu.Unlock()

	if prev == nil {
		return l.Set(fix)
	}
	blended := models.GPSFix{
		Lat:       prev.Lat*0.7 + fix.Lat*0.3,
		Lon:       prev.Lon*0.7 + fix.Lon*0.3,
		AccuracyM: minAccuracy(prev.AccuracyM, fix.AccuracyM),
		Source:    fix.Source,
		At:        fix.At,
	}
	return l.Set(blended)
}

// RepeatRadiusKm is how close a manual reading must be to the current
// manual position to count as another reading of the same mark.
const RepeatRadiusKm = 0.5

// Apply takes a new fix. A manual reading that repeats the current manual
// position is smoothed into it; anything else replaces the position.
func (l *Locator) Apply(fix models.GPSFix) error {
	l.mu.Lock()
	prev := l.fix
	l.mu.Unlock()

	if prev != nil && prev.Source == SourceManual && fix.Source == SourceManual &&
		HaversineDistance(prev.Lat, prev.Lon, fix.Lat, fix.Lon) <= RepeatRadiusKm {
		return l.Smooth(fix)
	}
	return l.Set(fix)
}

// Freshness is the time since the position last changed, or -1 when there
// is no position.
func (l *Locator) Freshness() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fix == nil {
		return -1
	}
	return l.now().Sub(l.last)
}

func minAccuracy(a, b float64) float64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

// AccuracyGrade rates a fix's accuracy radius in meters.
func AccuracyGrade(fix *models.GPSFix) string {
	if fix == nil || fix.AccuracyM <= 0 {
		return "unknown"
	}
	switch a := fix.AccuracyM; {
	case a < 6:
		return "excellent"
	case a < 15:
		return "good"
	case a < 30:
		return "poor"
	default:
		return "bad"
	}
}

// FormatCoords renders a fix as "lat, lon" with five decimals.
func FormatCoords(fix *models.GPSFix) string {
	if fix == nil {
		return "–"
	}
	return fmt.Sprintf("%.5f, %.5f", fix.Lat, fix.Lon)
}

// HaversineDistance calculates the distance between two points in kilometers
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
