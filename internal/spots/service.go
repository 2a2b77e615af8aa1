package spots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/openmeteo"
	"github.com/rs/zerolog"
)

// ExportFileName is the file written by ExportFile.
const ExportFileName = "StrikeLog_Spots.json"

// ErrDuplicateName is returned when adding a spot whose name is taken.
var ErrDuplicateName = errors.New("a spot with that name already exists")

// maxConcurrentRefresh bounds RefreshAll's parallel weather requests.
const maxConcurrentRefresh = 4

// Service orchestrates spot operations
type Service struct {
	repo    *Repository
	weather openmeteo.WeatherClient
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a new spot service. weather may be nil, in which case
// refreshing weather fails.
func NewService(repo *Repository, weather openmeteo.WeatherClient, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		weather: weather,
		log:     log.With().Str("component", "spots").Logger(),
		now:     time.Now,
	}
}

// AddSpot validates and saves a new spot with a fresh id
func (s *Service) AddSpot(name string, lat, lon, depthM float64, bottomType string) (*models.Spot, error) {
	spot := &models.Spot{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(name),
		Lat:        lat,
		Lon:        lon,
		DepthM:     depthM,
		BottomType: strings.TrimSpace(bottomType),
	}
	if err := models.Validate(spot); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByName(spot.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, spot.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.repo.Save(spot); err != nil {
		return nil, err
	}
	s.log.Info().Str("spot", spot.Name).Msg("spot added")
	return spot, nil
}

func (s *Service) ListSpots() ([]models.Spot, error) {
	return s.repo.List()
}

func (s *Service) GetSpot(id string) (*models.Spot, error) {
	return s.repo.Get(id)
}

func (s *Service) DeleteSpot(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("spot deleted")
	return nil
}

// RefreshWeather fetches current weather for one spot and stores it
func (s *Service) RefreshWeather(ctx context.Context, id string) (*models.Spot, error) {
	spot, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, spot); err != nil {
		return nil, err
	}
	return spot, nil
}

func (s *Service) refresh(ctx context.Context, spot *models.Spot) error {
	if s.weather == nil {
		return fmt.Errorf("no weather client configured")
	}
	now := s.now()
	obs, err := s.weather.Observation(ctx, spot.Lat, spot.Lon, now)
	if err != nil {
		return fmt.Errorf("fetching weather for %s: %w", spot.Name, err)
	}
	if err := s.repo.UpdateWeather(spot.ID, obs, now); err != nil {
		return err
	}
	spot.Weather = obs
	spot.LastUpdate = &now
	return nil
}

// RefreshAll updates weather for every spot. Spots whose fetch fails keep
// their previous weather; the failures are joined into the returned error.
func (s *Service) RefreshAll(ctx context.Context) (updated int, err error) {
	spots, err := s.repo.List()
	if err != nil {
		return 0, err
	}

	type result struct {
		name string
		err  error
	}

	results := make(chan result, len(spots))
	sem := make(chan struct{}, maxConcurrentRefresh)
	var wg sync.WaitGroup

	for i := range spots {
		wg.Add(1)
		go func(spot *models.Spot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- result{spot.Name, s.refresh(ctx, spot)}
		}(&spots[i])
	}
	wg.Wait()
	close(results)

	var errs []error
	for res := range results {
		if res.err != nil {
			s.log.Warn().Err(res.err).Str("spot", res.name).Msg("spot weather refresh failed")
			errs = append(errs, res.err)
			continue
		}
		updated++
	}
	s.log.Info().Int("updated", updated).Int("total", len(spots)).Msg("spot weather refreshed")
	return updated, errors.Join(errs...)
}

// Nearest returns the saved spot closest to lat/lon and its distance in km
func (s *Service) Nearest(lat, lon float64) (*models.Spot, float64, error) {
	spots, err := s.repo.List()
	if err != nil {
		return nil, 0, err
	}
	if len(spots) == 0 {
		return nil, 0, ErrNotFound
	}

	best := 0
	bestDist := math.Inf(1)
	for i, spot := range spots {
		if d := geocoding.HaversineDistance(lat, lon, spot.Lat, spot.Lon); d < bestDist {
			best, bestDist = i, d
		}
	}
	return &spots[best], bestDist, nil
}

// ExportJSON writes every spot as an indented JSON array
func (s *Service) ExportJSON(w io.Writer) error {
	spots, err := s.repo.List()
	if err != nil {
		return err
	}
	if spots == nil {
		spots = []models.Spot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(spots); err != nil {
		return fmt.Errorf("encoding spots: %w", err)
	}
	return nil
}

// ExportFile writes StrikeLog_Spots.json into dir and returns its path
func (s *Service) ExportFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, ExportFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := s.ExportJSON(f); err != nil {
		return "", err
	}
	return path, f.Close()
}

// ImportJSON replaces every saved spot with the JSON array read from r.
// Spots without an id are given one. Nothing is changed if any spot is
// invalid or names repeat.
func (s *Service) ImportJSON(r io.Reader) (int, error) {
	var spots []models.Spot
	if err := json.NewDecoder(r).Decode(&spots); err != nil {
		return 0, fmt.Errorf("decoding spots: %w", err)
	}

	seen := make(map[string]bool, len(spots))
	for i := range spots {
		sp := &spots[i]
		sp.Name = strings.TrimSpace(sp.Name)
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		if err := models.Validate(sp); err != nil {
			return 0, fmt.Errorf("spot %d: %w", i+1, err)
		}
		if seen[sp.Name] {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateName, sp.Name)
		}
		seen[sp.Name] = true
	}

	if err := s.repo.ReplaceAll(spots); err != nil {
		return 0, err
	}
	s.log.Info().Int("count", len(spots)).Msg("spots imported")
	return len(spots), nil
}

// ImportFile imports spots from a JSON file, or from a point shapefile
// (.shp, or a .zip holding one).
func (s *Service) ImportFile(path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp", ".zip":
		return s.ImportShapefile(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return s.ImportJSON(f)
	}
}
