// Package lunar computes moon phase, illumination and age using a low-precision
// Julian-date ephemeris. All functions are pure and safe for concurrent use.
package lunar

import (
	"math"
	"time"
)

// SynodicMonth is the mean length of a lunar cycle in days.
const SynodicMonth = 29.530588853

const (
	unixEpochJD = 2440587.5
	j2000       = 2451545.0
	// Julian date of a reference new moon used to anchor the age calculation.
	newMoonAnchorJD = 2451550.1
	msPerDay        = 86400000.0
)

// Phase is one of the eight named moon phases, ordered by age from New Moon.
type Phase int

const (
	NewMoon Phase = iota
	WaxingCrescent
	FirstQuarter
	WaxingGibbous
	FullMoon
	WaningGibbous
	LastQuarter
	WaningCrescent
)

var phaseNames = [...]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseIcons = [...]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

// Index returns the phase index, 0 (New Moon) through 7 (Waning Crescent).
func (p Phase) Index() int {
	return int(p.clamp())
}

// Name returns the display name of the phase (e.g. "Full Moon").
func (p Phase) Name() string {
	return phaseNames[p.clamp()]
}

// Icon returns the Unicode glyph for the phase.
func (p Phase) Icon() string {
	return phaseIcons[p.clamp()]
}

func (p Phase) String() string {
	return p.Name()
}

func (p Phase) clamp() Phase {
	if p < NewMoon {
		return NewMoon
	}
	if p > WaningCrescent {
		return WaningCrescent
	}
	return p
}

// State is the lunar situation at one instant.
type State struct {
	IlluminationPct float64 `json:"illumination"` // 0-100, one decimal
	PhaseAngle      float64 `json:"phase_angle"`  // degrees in [0,360)
	AgeDays         float64 `json:"age"`          // days since last new moon
	Phase           Phase   `json:"phase_index"`
}

// PhaseName is a convenience accessor for State.Phase.Name().
func (s State) PhaseName() string {
	return s.Phase.Name()
}

// Icon is a convenience accessor for State.Phase.Icon().
func (s State) Icon() string {
	return s.Phase.Icon()
}

// Compute returns the lunar state at t.
func Compute(t time.Time) State {
	jd := JulianDate(t)
	c := (jd - j2000) / 36525.0

	// Mean elongation, sun mean anomaly and moon mean anomaly. The moon's mean
	// longitude is not needed for the phase angle.
	d := normalize(297.8501921 + 445267.1114034*c)
	m := normalize(357.5291092 + 35999.0502909*c)
	mPrime := normalize(134.9633964 + 477198.8675055*c)

	phaseAngle := 180 - d -
		6.289*sinDeg(mPrime) +
		2.1*sinDeg(m) -
		1.274*sinDeg(2*d-mPrime) -
		0.658*sinDeg(2*d) -
		0.214*sinDeg(2*mPrime) -
		0.11*sinDeg(d)

	illum := (1 + math.Cos(rad(phaseAngle))) / 2
	age := Age(jd)

	return State{
		IlluminationPct: round1(illum * 100),
		PhaseAngle:      normalize(round1(phaseAngle)),
		AgeDays:         age,
		Phase:           PhaseOf(age),
	}
}

// JulianDate converts t to a (fractional) Julian Day number.
func JulianDate(t time.Time) float64 {
	return float64(t.UnixMilli())/msPerDay + unixEpochJD
}

// Age returns the days elapsed in the current synodic month for Julian date jd.
func Age(jd float64) float64 {
	cycles := (jd - newMoonAnchorJD) / SynodicMonth
	return (cycles - math.Floor(cycles)) * SynodicMonth
}

// PhaseOf maps a moon age in days to one of eight equal-width phase buckets.
func PhaseOf(ageDays float64) Phase {
	eighth := SynodicMonth / 8
	idx := int(math.Floor(ageDays / eighth))
	return Phase(idx).clamp()
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

func sinDeg(deg float64) float64 {
	return math.Sin(rad(deg))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
