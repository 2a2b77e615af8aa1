package models

import (
	"fmt"
	"time"

	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/lunar"
)

// GPSFix is a position reading and where it came from.
type GPSFix struct {
	Lat       float64   `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64   `json:"lon" validate:"gte=-180,lte=180"`
	AccuracyM float64   `json:"accuracy,omitempty"`
	Source    string    `json:"source,omitempty"` // "config", "geocoder", "spot"
	At        time.Time `json:"timestamp"`
}

// Gear is the tackle used on a mission.
type Gear struct {
	Rod  string `json:"rod"`
	Reel string `json:"reel"`
	Line string `json:"line"`
}

// Conditions are the angler's own observations at mission start.
type Conditions struct {
	SeaState   string  `json:"sea_state,omitempty"`
	Clarity    string  `json:"clarity,omitempty"`
	DepthM     float64 `json:"depth"`
	BottomType string  `json:"bottom_type,omitempty"`
	Baitfish   string  `json:"baitfish,omitempty"`
	Light      string  `json:"light,omitempty"`
	Tide       string  `json:"tide,omitempty"`
}

// Mission is a single fishing outing.
type Mission struct {
	ID            string     `json:"id"`
	Name          string     `json:"name" validate:"required"`
	Technique     string     `json:"technique" validate:"required"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	StartLocation *GPSFix    `json:"start_location"`
	EndLocation   *GPSFix    `json:"end_location,omitempty"`
	Gear          Gear       `json:"gear"`
	SpotID        string     `json:"spot,omitempty"`
	Conditions    Conditions `json:"conditions"`
	Notes         string     `json:"notes"`
}

// IsActive reports whether the mission has not been ended yet.
func (m *Mission) IsActive() bool {
	return m.EndTime == nil
}

// Elapsed returns the mission duration at now, or the full duration once ended.
func (m *Mission) Elapsed(now time.Time) time.Duration {
	end := now
	if m.EndTime != nil {
		end = *m.EndTime
	}
	if end.Before(m.StartTime) {
		return 0
	}
	return end.Sub(m.StartTime)
}

// ElapsedLabel formats Elapsed as MM:SS. Minutes keep counting past 59.
func (m *Mission) ElapsedLabel(now time.Time) string {
	d := m.Elapsed(now)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// AdvisorContext copies the mission context onto each strike so a strike
// can be analysed without its mission.
type AdvisorContext struct {
	MissionID  string     `json:"mission_id"`
	Technique  string     `json:"technique"`
	Gear       Gear       `json:"gear"`
	SpotID     string     `json:"spot,omitempty"`
	Conditions Conditions `json:"conditions"`
}

// AdvisorContext builds the context snapshot for a strike on m.
func (m *Mission) AdvisorContext() AdvisorContext {
	return AdvisorContext{
		MissionID:  m.ID,
		Technique:  m.Technique,
		Gear:       m.Gear,
		SpotID:     m.SpotID,
		Conditions: m.Conditions,
	}
}

// Dynamics describes how the fish was hooked.
type Dynamics struct {
	RetrieveTechnique string `json:"retrieve_technique,omitempty"`
	RetrieveSpeed     string `json:"retrieve_speed,omitempty"`
	StrikeDepth       string `json:"strike_depth,omitempty"`
	StrikeType        string `json:"strike_type,omitempty"`
}

// Strike is a single fish caught during a mission, with the environment
// captured at that moment.
type Strike struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
	Species   string    `json:"species,omitempty"`
	SizeCm    float64   `json:"size_cm" validate:"gte=0"`
	WeightG   float64   `json:"weight_g" validate:"gte=0"`
	Lure      string    `json:"lure,omitempty"`
	Released  bool      `json:"released"`
	Dynamics  Dynamics  `json:"dynamics"`
	Notes     string    `json:"notes,omitempty"`

	// Photo is a JPEG. It travels as photos/<id>.jpg in bundles, not inline.
	Photo []byte `json:"-"`

	GPS            *GPSFix                 `json:"gps"`
	Env            *WeatherObservation     `json:"env"`
	Assessment     *environment.Assessment `json:"assessment,omitempty"`
	Lunar          *lunar.State            `json:"lunar"`
	AdvisorContext AdvisorContext          `json:"advisor_context"`
}

// HasPhoto reports whether a photo is attached.
func (s *Strike) HasPhoto() bool {
	return len(s.Photo) > 0
}
