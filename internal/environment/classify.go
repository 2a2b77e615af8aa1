// Package environment turns raw weather numbers into the categorical and
// scalar assessments shown to the angler. Every function is pure; absent
// inputs (nil pointers, empty labels) yield a neutral marker instead of an
// error.
package environment

import (
	"math"
	"strings"
)

// NoData is the marker rendered for a missing compass direction.
const NoData = "–"

var cardinals8 = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

var cardinals16 = [...]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// Cardinal8 maps a direction in degrees to an 8-point compass label.
func Cardinal8(deg *float64) string {
	return cardinal(deg, cardinals8[:])
}

// Cardinal16 maps a direction in degrees to a 16-point compass label.
func Cardinal16(deg *float64) string {
	return cardinal(deg, cardinals16[:])
}

func cardinal(deg *float64, dirs []string) string {
	if deg == nil || math.IsNaN(*deg) || math.IsInf(*deg, 0) {
		return NoData
	}
	n := len(dirs)
	sector := 360.0 / float64(n)

	d := math.Mod(*deg, 360)
	if d < 0 {
		d += 360
	}
	return dirs[int(math.Round(d/sector))%n]
}

// Upper bounds (km/h, inclusive) for Beaufort forces 0 through 11.
var beaufortLimits = [...]float64{1, 5, 11, 19, 28, 38, 49, 61, 74, 88, 102, 117}

// Beaufort returns the Beaufort force (0-12) for a wind speed in km/h.
// ok is false when the speed is absent.
func Beaufort(kmh *float64) (force int, ok bool) {
	if kmh == nil || math.IsNaN(*kmh) {
		return 0, false
	}
	for i, limit := range beaufortLimits {
		if *kmh <= limit {
			return i, true
		}
	}
	return 12, true
}

// SeaState is a descriptive category for wave height.
type SeaState string

const (
	SeaGlassy       SeaState = "glassy"
	SeaCalm         SeaState = "calm"
	SeaLightChop    SeaState = "light chop"
	SeaChoppy       SeaState = "choppy"
	SeaRough        SeaState = "rough"
	SeaVeryRough    SeaState = "very rough"
	SeaViolent      SeaState = "violent seas"
	SeaStateUnknown SeaState = "unknown"
)

// ClassifySeaState buckets a wave height in meters.
func ClassifySeaState(waveM *float64) SeaState {
	if waveM == nil || math.IsNaN(*waveM) {
		return SeaStateUnknown
	}
	switch h := *waveM; {
	case h < 0.2:
		return SeaGlassy
	case h < 0.5:
		return SeaCalm
	case h < 1.0:
		return SeaLightChop
	case h < 1.8:
		return SeaChoppy
	case h < 2.5:
		return SeaRough
	case h < 4.0:
		return SeaVeryRough
	default:
		return SeaViolent
	}
}

// Water clarity labels, as entered by the angler.
const (
	ClarityClear      = "clear"
	ClaritySemiClear  = "semi-clear"
	ClaritySemiTurbid = "semi-turbid"
	ClarityTurbid     = "turbid"
)

// Clarities lists the recognised clarity labels, clearest first.
var Clarities = []string{ClarityClear, ClaritySemiClear, ClaritySemiTurbid, ClarityTurbid}

// ClarityScore maps a clarity label to 3 (clear) through 0 (turbid).
// Unrecognised or empty labels score 0.
func ClarityScore(label string) int {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case ClarityClear:
		return 3
	case ClaritySemiClear:
		return 2
	case ClaritySemiTurbid:
		return 1
	default:
		return 0
	}
}

// PressureTrend describes the short-term change in barometric pressure.
type PressureTrend string

const (
	TrendRisingFast  PressureTrend = "rising fast"
	TrendRising      PressureTrend = "rising"
	TrendSteady      PressureTrend = "steady"
	TrendFalling     PressureTrend = "falling"
	TrendFallingFast PressureTrend = "falling fast"
	TrendUnknown     PressureTrend = "unknown"
)

// IsRising reports whether the trend is rising or rising fast.
func (t PressureTrend) IsRising() bool {
	return strings.Contains(string(t), "rising")
}

// IsFalling reports whether the trend is falling or falling fast.
func (t PressureTrend) IsFalling() bool {
	return strings.Contains(string(t), "falling")
}

// PressureTrendOf classifies the change from prev to curr (hPa).
// A change of exactly ±0.3 or ±1.5 lands in the milder bucket.
func PressureTrendOf(prev, curr *float64) PressureTrend {
	if prev == nil || curr == nil {
		return TrendUnknown
	}
	delta := *curr - *prev
	switch {
	case math.IsNaN(delta):
		return TrendUnknown
	case delta > 1.5:
		return TrendRisingFast
	case delta > 0.3:
		return TrendRising
	case delta >= -0.3:
		return TrendSteady
	case delta >= -1.5:
		return TrendFalling
	default:
		return TrendFallingFast
	}
}

// TideTrend is a coarse tide state estimated from the moon's age.
// It is a fallback heuristic and must not be used for navigation.
type TideTrend string

const (
	TideRising  TideTrend = "rising"
	TideHigh    TideTrend = "high"
	TideFalling TideTrend = "falling"
	TideLow     TideTrend = "low"
)

const tideCycleDays = 6.21

// TideTrendOf estimates the tide state from lunar age in days.
func TideTrendOf(lunarAgeDays float64) TideTrend {
	mod := math.Mod(lunarAgeDays, tideCycleDays)
	if mod < 0 {
		mod += tideCycleDays
	}
	switch {
	case mod < 1.5:
		return TideRising
	case mod < 3.1:
		return TideHigh
	case mod < 4.6:
		return TideFalling
	default:
		return TideLow
	}
}
