// Package missions runs the mission lifecycle: starting and ending an outing,
// recording strikes with the conditions at that moment, and exporting the
// results.
package missions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/lunar"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/rs/zerolog"
)

// ErrNotJPEG is returned when a strike photo is not a JPEG image.
var ErrNotJPEG = errors.New("photo is not a JPEG")

// maxPhotoBytes caps attached photos.
const maxPhotoBytes = 20 << 20

// StartInput is what the angler fills in to start a mission.
type StartInput struct {
	Name       string
	Technique  string
	Gear       models.Gear
	SpotID     string
	Conditions models.Conditions
	Notes      string
}

// StrikeInput is what the angler fills in for a strike. Photo bytes win over
// PhotoPath when both are set.
type StrikeInput struct {
	Species   string
	SizeCm    float64
	WeightG   float64
	Lure      string
	Released  bool
	Dynamics  models.Dynamics
	Notes     string
	Photo     []byte
	PhotoPath string
}

// Service orchestrates mission operations
type Service struct {
	repo      *Repository
	tracker   *conditions.Tracker
	position  geocoding.PositionSource
	exportDir string
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a mission service. position may be nil, in which case
// missions and strikes are recorded without GPS.
func NewService(repo *Repository, tracker *conditions.Tracker, position geocoding.PositionSource, exportDir string, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		tracker:   tracker,
		position:  position,
		exportDir: exportDir,
		log:       log.With().Str("component", "missions").Logger(),
		now:       time.Now,
	}
}

// Start begins a new mission. Only one mission may be active at a time.
func (s *Service) Start(ctx context.Context, in StartInput) (*models.Mission, error) {
	if _, err := s.repo.ActiveMission(); err == nil {
		return nil, ErrMissionActive
	} else if !errors.Is(err, ErrNoActiveMission) {
		return nil, err
	}

	m := &models.Mission{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(in.Name),
		Technique:  strings.TrimSpace(in.Technique),
		StartTime:  s.now().UTC(),
		Gear:       in.Gear,
		SpotID:     in.SpotID,
		Conditions: in.Conditions,
		Notes:      in.Notes,
	}
	if err := models.Validate(m); err != nil {
		return nil, err
	}

	m.StartLocation = s.locate(ctx, "start")

	if err := s.repo.SaveMission(m); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("mission", m.ID).
		Str("name", m.Name).
		Str("technique", m.Technique).
		Msg("mission started")
	return m, nil
}

// Active returns the unfinished mission, if any. It is how a mission that
// was running when the app closed is restored on the next launch.
func (s *Service) Active() (*models.Mission, error) {
	return s.repo.ActiveMission()
}

// End finishes the active mission and writes its ZIP bundle to the export
// directory. The mission is ended even if the export fails; the returned
// path is empty in that case.
func (s *Service) End(ctx context.Context) (*models.Mission, string, error) {
	m, err := s.repo.ActiveMission()
	if err != nil {
		return nil, "", err
	}

	end := s.now().UTC()
	m.EndTime = &end
	m.EndLocation = s.locate(ctx, "end")

	if err := s.repo.SaveMission(m); err != nil {
		return nil, "", err
	}

	strikes, err := s.repo.ListStrikes(m.ID)
	if err != nil {
		return m, "", err
	}
	s.log.Info().
		Str("mission", m.ID).
		Int("strikes", len(strikes)).
		Dur("elapsed", m.Elapsed(end)).
		Msg("mission ended")

	path, err := s.writeExport(m, strikes, FormatBundle)
	if err != nil {
		s.log.Error().Err(err).Str("mission", m.ID).Msg("auto export failed")
		return m, "", fmt.Errorf("exporting mission bundle: %w", err)
	}
	return m, path, nil
}

// RecordStrike logs a catch on the active mission, capturing position,
// weather, assessment and moon state at this instant.
func (s *Service) RecordStrike(ctx context.Context, in StrikeInput) (*models.Strike, error) {
	m, err := s.repo.ActiveMission()
	if err != nil {
		return nil, err
	}

	photo := in.Photo
	if len(photo) == 0 && in.PhotoPath != "" {
		if photo, err = ReadPhoto(in.PhotoPath); err != nil {
			return nil, err
		}
	}
	if len(photo) > 0 && !IsJPEG(photo) {
		return nil, ErrNotJPEG
	}

	now := s.now().UTC()
	strike := &models.Strike{
		ID:             uuid.New().String(),
		MissionID:      m.ID,
		Timestamp:      now,
		Species:        strings.TrimSpace(in.Species),
		SizeCm:         in.SizeCm,
		WeightG:        in.WeightG,
		Lure:           strings.TrimSpace(in.Lure),
		Released:       in.Released,
		Dynamics:       in.Dynamics,
		Notes:          in.Notes,
		Photo:          photo,
		AdvisorContext: m.AdvisorContext(),
	}
	if err := models.Validate(strike); err != nil {
		return nil, err
	}

	s.captureConditions(ctx, strike, m.Conditions.Clarity, now)

	if err := s.repo.SaveStrike(strike); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("mission", m.ID).
		Str("strike", strike.ID).
		Str("species", strike.Species).
		Bool("gps", strike.GPS != nil).
		Bool("weather", strike.Env != nil).
		Msg("strike recorded")
	return strike, nil
}

// captureConditions fills the strike's environment. The moon is always
// known; GPS, weather and the assessment need a position.
func (s *Service) captureConditions(ctx context.Context, strike *models.Strike, clarity string, at time.Time) {
	if s.tracker != nil {
		snap, err := s.tracker.Snapshot(ctx, clarity, at)
		if err == nil {
			fix := snap.Fix
			moon := snap.Lunar
			assessment := snap.Assessment
			strike.GPS = &fix
			strike.Env = snap.Weather
			strike.Assessment = &assessment
			strike.Lunar = &moon
			return
		}
		s.log.Warn().Err(err).Msg("no conditions snapshot for strike")
	}

	moon := lunar.Compute(at)
	strike.Lunar = &moon
	strike.GPS = s.locate(ctx, "strike")
}

// locate returns the current fix, or nil when none is available.
func (s *Service) locate(ctx context.Context, what string) *models.GPSFix {
	if s.position == nil {
		return nil
	}
	fix, err := s.position.Locate(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("at", what).Msg("no GPS fix")
		return nil
	}
	return fix
}

// Strikes returns a mission's strikes in the order they happened.
func (s *Service) Strikes(missionID string) ([]models.Strike, error) {
	return s.repo.ListStrikes(missionID)
}

// Missions returns every mission, newest first.
func (s *Service) Missions() ([]models.Mission, error) {
	return s.repo.ListMissions()
}

func (s *Service) Mission(id string) (*models.Mission, error) {
	return s.repo.GetMission(id)
}

// DeleteMission removes a finished mission and its strikes.
func (s *Service) DeleteMission(id string) error {
	m, err := s.repo.GetMission(id)
	if err != nil {
		return err
	}
	if m.IsActive() {
		return ErrMissionActive
	}
	if err := s.repo.DeleteMission(id); err != nil {
		return err
	}
	s.log.Info().Str("mission", id).Msg("mission deleted")
	return nil
}

// StrikeCount returns how many strikes a mission has.
func (s *Service) StrikeCount(missionID string) (int, error) {
	return s.repo.CountStrikes(missionID)
}

func (s *Service) DeleteStrike(id string) error {
	if err := s.repo.DeleteStrike(id); err != nil {
		return err
	}
	s.log.Info().Str("strike", id).Msg("strike deleted")
	return nil
}

// ReadPhoto loads a JPEG from disk.
func ReadPhoto(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if info.Size() > maxPhotoBytes {
		return nil, fmt.Errorf("photo %s is larger than %d MB", path, maxPhotoBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if !IsJPEG(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotJPEG)
	}
	return data, nil
}

// IsJPEG checks the SOI marker.
func IsJPEG(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
}
