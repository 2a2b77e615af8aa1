package missions

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ngmaloney/strike-log/internal/models"
)

// Format selects an export type.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatBundle Format = "zip"
)

// Entries inside a mission bundle.
const (
	bundleMission = "mission.json"
	bundleStrikes = "strikes.json"
	bundlePhotos  = "photos/"
)

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"timestamp", "species", "size_cm", "weight_g", "lure", "released",
	"lat", "lon", "wind", "temp_air", "temp_water", "pressure", "waves",
	"clarity", "depth",
}

// Export is the quick JSON export: a mission and its strikes.
type Export struct {
	Mission models.Mission  `json:"mission"`
	Strikes []models.Strike `json:"strikes"`
}

// FileName returns the export file name for a mission.
func FileName(missionID string, f Format) string {
	switch f {
	case FormatCSV:
		return "StrikeLog_Mission_" + missionID + ".csv"
	case FormatBundle:
		return "StrikeLog_MissionBundle_" + missionID + ".zip"
	default:
		return "StrikeLog_Mission_" + missionID + ".json"
	}
}

// WriteJSON writes the quick export. Photos are not included.
func WriteJSON(w io.Writer, m *models.Mission, strikes []models.Strike) error {
	if strikes == nil {
		strikes = []models.Strike{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export{Mission: *m, Strikes: strikes}); err != nil {
		return fmt.Errorf("encoding mission: %w", err)
	}
	return nil
}

// WriteCSV writes one row per strike. Values that were not recorded are
// left empty.
func WriteCSV(w io.Writer, m *models.Mission, strikes []models.Strike) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	depth := ""
	if m.Conditions.DepthM > 0 {
		depth = formatFloat(m.Conditions.DepthM)
	}

	for _, s := range strikes {
		row := []string{
			s.Timestamp.UTC().Format(time.RFC3339),
			s.Species,
			positive(s.SizeCm),
			positive(s.WeightG),
			s.Lure,
			strconv.FormatBool(s.Released),
			"", "",
			"", "", "", "", "",
			m.Conditions.Clarity,
			depth,
		}
		if s.GPS != nil {
			row[6] = strconv.FormatFloat(s.GPS.Lat, 'f', 6, 64)
			row[7] = strconv.FormatFloat(s.GPS.Lon, 'f', 6, 64)
		}
		if env := s.Env; env != nil {
			row[8] = optional(env.WindSpeedKmh)
			row[9] = optional(env.AirTempC)
			row[10] = optional(env.WaterTempC)
			row[11] = optional(env.PressureHPa)
			row[12] = optional(env.WaveHeightM)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// WriteBundle writes a ZIP with mission.json, strikes.json and every photo
// as photos/<strike id>.jpg.
func WriteBundle(w io.Writer, m *models.Mission, strikes []models.Strike) error {
	if strikes == nil {
		strikes = []models.Strike{}
	}
	zw := zip.NewWriter(w)

	if err := writeZipJSON(zw, bundleMission, m); err != nil {
		return err
	}
	if err := writeZipJSON(zw, bundleStrikes, strikes); err != nil {
		return err
	}
	for _, s := range strikes {
		if !s.HasPhoto() {
			continue
		}
		f, err := zw.Create(bundlePhotos + s.ID + ".jpg")
		if err != nil {
			return fmt.Errorf("adding photo: %w", err)
		}
		if _, err := f.Write(s.Photo); err != nil {
			return fmt.Errorf("writing photo: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing bundle: %w", err)
	}
	return nil
}

func writeZipJSON(zw *zip.Writer, name string, v any) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return nil
}

// Export writes a mission in the given format to the export directory and
// returns the file path.
func (s *Service) Export(missionID string, f Format) (string, error) {
	m, err := s.repo.GetMission(missionID)
	if err != nil {
		return "", err
	}
	strikes, err := s.repo.ListStrikes(missionID)
	if err != nil {
		return "", err
	}
	return s.writeExport(m, strikes, f)
}

func (s *Service) writeExport(m *models.Mission, strikes []models.Strike, f Format) (string, error) {
	var write func(io.Writer, *models.Mission, []models.Strike) error
	switch f {
	case FormatJSON:
		write = WriteJSON
	case FormatCSV:
		write = WriteCSV
	case FormatBundle:
		write = WriteBundle
	default:
		return "", fmt.Errorf("unknown export format %q", f)
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	outPath := filepath.Join(s.exportDir, FileName(m.ID, f))
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	if err := write(out, m, strikes); err != nil {
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	s.log.Info().
		Str("mission", m.ID).
		Str("format", string(f)).
		Str("path", outPath).
		Msg("mission exported")
	return outPath, nil
}

// ImportBundle loads a mission bundle for review. An existing mission with
// the same id is replaced along with its strikes. Nothing is written unless
// the mission and every strike are valid. A bundle of an unfinished mission
// is closed at its last strike so it cannot become the active mission.
func (s *Service) ImportBundle(bundlePath string) (*models.Mission, int, error) {
	r, err := zip.OpenReader(bundlePath)
	if err != nil {
		return nil, 0, fmt.Errorf("opening bundle: %w", err)
	}
	defer r.Close()

	var (
		m       *models.Mission
		strikes []models.Strike
		photos  = map[string][]byte{}
	)
	for _, f := range r.File {
		name := path.Clean(f.Name)
		switch {
		case name == bundleMission:
			m = &models.Mission{}
			if err := readZipJSON(f, m); err != nil {
				return nil, 0, err
			}
		case name == bundleStrikes:
			if err := readZipJSON(f, &strikes); err != nil {
				return nil, 0, err
			}
		case strings.HasPrefix(name, bundlePhotos) && strings.HasSuffix(name, ".jpg"):
			data, err := readZipFile(f, maxPhotoBytes)
			if err != nil {
				return nil, 0, err
			}
			photos[strings.TrimSuffix(path.Base(name), ".jpg")] = data
		}
	}
	if m == nil {
		return nil, 0, errors.New("bundle has no mission.json")
	}
	if m.ID == "" {
		return nil, 0, errors.New("bundle mission has no id")
	}
	if err := models.Validate(m); err != nil {
		return nil, 0, err
	}

	if m.EndTime == nil {
		end := m.StartTime
		for _, st := range strikes {
			if st.Timestamp.After(end) {
				end = st.Timestamp
			}
		}
		m.EndTime = &end
	}

	for i := range strikes {
		st := &strikes[i]
		st.MissionID = m.ID
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		st.Photo = photos[st.ID]
		if err := models.Validate(st); err != nil {
			return nil, 0, fmt.Errorf("strike %d: %w", i+1, err)
		}
	}

	if err := s.repo.ReplaceMission(m, strikes); err != nil {
		return nil, 0, err
	}

	s.log.Info().
		Str("mission", m.ID).
		Int("strikes", len(strikes)).
		Int("photos", len(photos)).
		Msg("mission bundle imported")
	return m, len(strikes), nil
}

func readZipJSON(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", f.Name, err)
	}
	return nil
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is too large", f.Name)
	}
	return data, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// positive formats v, or nothing when it was not entered.
func positive(v float64) string {
	if v <= 0 {
		return ""
	}
	return formatFloat(v)
}
