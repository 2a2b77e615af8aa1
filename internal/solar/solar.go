// Package solar computes sunrise and sunset from coordinates and a calendar
// date using the NOAA approximate sunrise equation.
package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrPolarDayOrNight is returned when the sun does not cross the horizon
	// on the requested date.
	ErrPolarDayOrNight = errors.New("sun does not rise or set on this date")

	// ErrPolarDay means the sun stays above the horizon all day.
	ErrPolarDay = fmt.Errorf("%w: polar day", ErrPolarDayOrNight)

	// ErrPolarNight means the sun stays below the horizon all day.
	ErrPolarNight = fmt.Errorf("%w: polar night", ErrPolarDayOrNight)

	// ErrInvalidCoordinates is returned for latitude outside [-90,90] or
	// longitude outside [-180,180].
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

const (
	unixEpochJD = 2440587.5
	j2000       = 2451545.0
	// Fractional-day correction from the sunrise equation.
	julianOffset = 0.0009
	secPerDay    = 86400.0

	obliquityDeg  = 23.44
	perihelionDeg = 102.9372
	// Apparent altitude of the sun's centre at rise/set, accounting for
	// atmospheric refraction and the solar disc radius.
	horizonDeg = -0.833
)

// Times holds sunrise and sunset for one calendar date, as UTC instants.
type Times struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// DayLength returns the time between sunrise and sunset.
func (t Times) DayLength() time.Duration {
	return t.Sunset.Sub(t.Sunrise)
}

// Compute returns sunrise and sunset at lat/lon (decimal degrees, east
// positive) for the calendar date of date in date's own location.
func Compute(lat, lon float64, date time.Time) (Times, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Times{}, fmt.Errorf("%w: lat %.4f lon %.4f", ErrInvalidCoordinates, lat, lon)
	}

	// Local mean solar noon of the requested calendar day anchors the cycle
	// number so that the result never drifts to an adjacent date.
	y, m, d := date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	jdNoon := toJulian(noon) - lon/360

	n := math.Round(jdNoon - j2000 - julianOffset + lon/360)
	meanNoon := julianOffset - lon/360 + n

	meanAnomaly := rad(357.5291 + 0.98560028*meanNoon)
	center := rad(1.9148*math.Sin(meanAnomaly) +
		0.02*math.Sin(2*meanAnomaly) +
		0.0003*math.Sin(3*meanAnomaly))
	lambda := math.Mod(meanAnomaly+center+rad(perihelionDeg)+math.Pi, 2*math.Pi)

	transit := j2000 + meanNoon + 0.0053*math.Sin(meanAnomaly) - 0.0069*math.Sin(2*lambda)
	declination := math.Asin(math.Sin(lambda) * math.Sin(rad(obliquityDeg)))

	latRad := rad(lat)
	cosOmega := (math.Sin(rad(horizonDeg)) - math.Sin(latRad)*math.Sin(declination)) /
		(math.Cos(latRad) * math.Cos(declination))

	switch {
	case math.IsNaN(cosOmega) || math.IsInf(cosOmega, 0):
		// cos(lat) is zero only at the poles, where the sun is either up or
		// down for the whole day depending on the hemisphere's season.
		if lat*declination > 0 {
			return Times{}, ErrPolarDay
		}
		return Times{}, ErrPolarNight
	case cosOmega < -1:
		return Times{}, ErrPolarDay
	case cosOmega > 1:
		return Times{}, ErrPolarNight
	}

	omega := math.Acos(cosOmega)
	frac := omega / (2 * math.Pi)

	return Times{
		Sunrise: fromJulian(transit - frac),
		Sunset:  fromJulian(transit + frac),
	}, nil
}

func toJulian(t time.Time) float64 {
	return float64(t.UnixMilli())/(secPerDay*1000) + unixEpochJD
}

func fromJulian(jd float64) time.Time {
	sec := (jd - unixEpochJD) * secPerDay
	whole := math.Floor(sec)
	return time.Unix(int64(whole), int64((sec-whole)*1e9)).UTC()
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
