package ui

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/database"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/missions"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/spots"
	"github.com/rs/zerolog"
)

// Mock weather client for testing
type mockWeatherClient struct {
	obs *models.WeatherObservation
}

func (m *mockWeatherClient) Observation(ctx context.Context, lat, lon float64, at time.Time) (*models.WeatherObservation, error) {
	obs := *m.obs
	obs.ObservedAt = at
	return &obs, nil
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "strikelog.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	weather := &mockWeatherClient{obs: &models.WeatherObservation{
		WindSpeedKmh:     models.Float(14),
		WindDirectionDeg: models.Float(200),
		PressureHPa:      models.Float(1015),
	}}
	locator := geocoding.NewLocator(&models.GPSFix{Lat: 41.68, Lon: -69.96})
	tracker := conditions.NewTracker(weather, locator, zerolog.Nop())
	exportDir := filepath.Join(dir, "exports")

	return Deps{
		Missions:  missions.NewService(missions.NewRepository(db), tracker, locator, exportDir, zerolog.Nop()),
		Spots:     spots.NewService(spots.NewRepository(db), weather, zerolog.Nop()),
		Tracker:   tracker,
		Locator:   locator,
		Geocoder:  geocoding.NewGeocoder("http://127.0.0.1:1", ""),
		ExportDir: exportDir,
	}
}

// run executes cmd and returns the first message of type T it produces,
// looking inside batches
func run[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	if msg, ok := find[T](cmd); ok {
		return msg
	}
	var zero T
	t.Fatalf("command produced no %T", zero)
	return zero
}

func find[T tea.Msg](cmd tea.Cmd) (T, bool) {
	var zero T
	if cmd == nil {
		return zero, false
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if found, ok := find[T](c); ok {
				return found, true
			}
		}
		return zero, false
	}
	found, ok := msg.(T)
	return found, ok
}

// TestIntegration_MissionFlow tests starting a mission, logging a strike and
// ending it
func TestIntegration_MissionFlow(t *testing.T) {
	deps := newTestDeps(t)
	m := NewModel(deps)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	// Step 1: open the mission form and fill the required fields
	m, _ = update(t, m, key("m"))
	m = typeText(t, m, "Dawn patrol")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "topwater")
	m.missionForm.inputs[mfClarity].SetValue("Clear")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.formErr != nil {
		t.Fatalf("formErr = %v", m.formErr)
	}
	started := run[missionStartedMsg](t, cmd)
	if started.err != nil {
		t.Fatalf("starting mission: %v", started.err)
	}
	m, _ = update(t, m, started)

	if m.state != StateMission || m.mission == nil {
		t.Fatalf("state = %v, mission = %v", m.state, m.mission)
	}
	if m.mission.Conditions.Clarity != "clear" {
		t.Errorf("clarity = %q, want it lowercased", m.mission.Conditions.Clarity)
	}

	// Step 2: log a strike
	m, _ = update(t, m, key("n"))
	if m.state != StateStrikeForm {
		t.Fatalf("state = %v, want StateStrikeForm", m.state)
	}
	m = typeText(t, m, "Striped bass")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // next field
	m = typeText(t, m, "74")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	recorded := run[strikeRecordedMsg](t, cmd)
	if recorded.err != nil {
		t.Fatalf("recording strike: %v", recorded.err)
	}
	m, _ = update(t, m, recorded)

	if len(m.strikes) != 1 || m.strikes[0].SizeCm != 74 || !m.strikes[0].Released {
		t.Fatalf("strikes = %+v", m.strikes)
	}
	if m.strikes[0].Env == nil || m.strikes[0].Assessment == nil {
		t.Error("strike is missing its conditions")
	}
	if !strings.Contains(m.View(), "Striped bass") {
		t.Error("mission view does not list the strike")
	}

	// Step 3: a fresh model restores the unfinished mission
	restored := run[missionRestoredMsg](t, restoreMission(deps.Missions))
	other, _ := update(t, NewModel(deps), restored)
	if other.state != StateMission || other.mission.ID != m.mission.ID || len(other.strikes) != 1 {
		t.Errorf("restored model state = %v, mission = %v", other.state, other.mission)
	}

	// Step 4: end the mission
	m, cmd = update(t, m, key("e"))
	ended := run[missionEndedMsg](t, cmd)
	m, _ = update(t, m, ended)

	if m.state != StateConditions || m.mission != nil {
		t.Errorf("after end state = %v, mission = %v", m.state, m.mission)
	}
	if m.statusErr || !strings.Contains(m.status, "Bundle saved") {
		t.Errorf("status = %q", m.status)
	}
	if _, err := os.Stat(ended.bundlePath); err != nil {
		t.Errorf("bundle not written: %v", err)
	}

	// Step 5: the log lists it and exports it
	m, cmd = update(t, m, key("l"))
	m, _ = update(t, m, run[missionsLoadedMsg](t, cmd))
	if len(m.logList.Items()) != 1 {
		t.Fatalf("log has %d missions, want 1", len(m.logList.Items()))
	}
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, run[strikesLoadedMsg](t, cmd))
	if len(m.logStrikes) != 1 {
		t.Errorf("log strikes = %d, want 1", len(m.logStrikes))
	}
	_, cmd = update(t, m, key("x"))
	exported := run[exportedMsg](t, cmd)
	if exported.err != nil || !strings.HasSuffix(exported.path, ".csv") {
		t.Errorf("export = %+v", exported)
	}
	if item := m.logList.Items()[0].(missionItem); !strings.HasSuffix(item.Description(), "1 strike") {
		t.Errorf("log entry = %q, want the strike count", item.Description())
	}

	// Step 6: delete the strike, then the mission
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.logStrikeFocus || !strings.Contains(m.View(), "▸") {
		t.Fatal("tab did not select the strike list")
	}
	m, cmd = update(t, m, key("d"))
	deleted := run[deletedMsg](t, cmd)
	if deleted.err != nil {
		t.Fatalf("deleting strike: %v", deleted.err)
	}
	m, cmd = update(t, m, deleted)
	m, _ = update(t, m, run[strikesLoadedMsg](t, cmd))
	m, _ = update(t, m, run[missionsLoadedMsg](t, cmd))
	if len(m.logStrikes) != 0 || m.logStrikeFocus {
		t.Errorf("after delete strikes = %d, focus = %v", len(m.logStrikes), m.logStrikeFocus)
	}
	if item := m.logList.Items()[0].(missionItem); item.strikes != 0 {
		t.Errorf("strike count after delete = %d, want 0", item.strikes)
	}

	m, cmd = update(t, m, key("d"))
	m, cmd = update(t, m, run[deletedMsg](t, cmd))
	m, _ = update(t, m, run[missionsLoadedMsg](t, cmd))
	if len(m.logList.Items()) != 0 {
		t.Errorf("log has %d missions after delete, want 0", len(m.logList.Items()))
	}
}

func TestIntegration_LocateByCoordinates(t *testing.T) {
	deps := newTestDeps(t)
	m := NewModel(deps)

	m, _ = update(t, m, key("/"))
	m = typeText(t, m, "42.05, -70.19")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	geo := run[geocodeMsg](t, cmd)
	if geo.err != nil {
		t.Fatalf("geocoding coordinates: %v", geo.err)
	}
	m, cmd = update(t, m, geo)
	if m.state != StateConditions {
		t.Errorf("state = %v, want StateConditions", m.state)
	}

	fix, _ := deps.Locator.Locate(context.Background())
	if fix.Lat != 42.05 || fix.Lon != -70.19 {
		t.Errorf("locator at %v, %v", fix.Lat, fix.Lon)
	}

	cond := run[conditionsMsg](t, cmd)
	m, _ = update(t, m, cond)
	if m.snapshot == nil || m.snapshot.Fix.Lat != 42.05 {
		t.Errorf("snapshot = %+v", m.snapshot)
	}
	if !strings.Contains(m.renderConditions(), "(manual) set") {
		t.Error("conditions pane does not say when the position was set")
	}

	// A second reading of the same mark is blended into the first
	m, _ = update(t, m, key("/"))
	m = typeText(t, m, "42.051, -70.19")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, run[geocodeMsg](t, cmd))

	fix, _ = deps.Locator.Locate(context.Background())
	if math.Abs(fix.Lat-42.0503) > 1e-9 {
		t.Errorf("repeated reading lat = %.6f, want 42.0503", fix.Lat)
	}
}

func TestIntegration_Spots(t *testing.T) {
	deps := newTestDeps(t)
	m := NewModel(deps)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := update(t, m, key("s"))
	m, _ = update(t, m, run[spotsLoadedMsg](t, cmd))
	if m.state != StateSpots || len(m.spots) != 0 {
		t.Fatalf("state = %v, spots = %d", m.state, len(m.spots))
	}

	// Add a spot through the form
	m, _ = update(t, m, key("a"))
	m = typeText(t, m, "Bearse's Shoal")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "41.60")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "-70.05")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	changed := run[spotsChangedMsg](t, cmd)
	if changed.err != nil {
		t.Fatalf("adding spot: %v", changed.err)
	}
	m, cmd = update(t, m, changed)
	if m.state != StateSpots {
		t.Errorf("state = %v, want StateSpots", m.state)
	}
	m, _ = update(t, m, run[spotsLoadedMsg](t, cmd))
	if len(m.spots) != 1 {
		t.Fatalf("spots = %d, want 1", len(m.spots))
	}

	// Refresh its weather
	_, cmd = update(t, m, key("r"))
	if refreshed := run[spotsChangedMsg](t, cmd); refreshed.err != nil {
		t.Errorf("refreshing spot: %v", refreshed.err)
	}

	// Select it: the position moves there
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateConditions {
		t.Errorf("state = %v, want StateConditions", m.state)
	}
	fix, _ := deps.Locator.Locate(context.Background())
	if fix.Lat != 41.60 || fix.Source != geocoding.SourceSpot {
		t.Errorf("locator = %+v", fix)
	}

	// A duplicate name is reported on the form
	m, _ = update(t, m, key("s"))
	m, _ = update(t, m, key("a"))
	m.spotForm.inputs[pfName].SetValue("Bearse's Shoal")
	m.spotForm.inputs[pfLat].SetValue("41")
	m.spotForm.inputs[pfLon].SetValue("-70")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = update(t, m, run[spotsChangedMsg](t, cmd))
	if m.state != StateSpotForm || m.formErr == nil {
		t.Errorf("duplicate spot: state = %v, formErr = %v", m.state, m.formErr)
	}
}
