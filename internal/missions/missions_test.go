package missions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/database"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/rs/zerolog"
)

var missionStart = time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)

// fakeJPEG is just enough of a JPEG to pass the SOI check.
var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fixedWeather struct {
	obs *models.WeatherObservation
	err error
}

func (f *fixedWeather) Observation(ctx context.Context, lat, lon float64, at time.Time) (*models.WeatherObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	obs := *f.obs
	obs.ObservedAt = at
	return &obs, nil
}

type testEnv struct {
	svc   *Service
	db    string
	clock time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func newTestEnv(t *testing.T, home *models.GPSFix, weather *fixedWeather) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	env := &testEnv{db: dbPath, clock: missionStart}
	env.svc = openService(t, dbPath, home, weather)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func openService(t *testing.T, dbPath string, home *models.GPSFix, weather *fixedWeather) *Service {
	t.Helper()
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	locator := geocoding.NewLocator(home)
	var tracker *conditions.Tracker
	if weather != nil {
		tracker = conditions.NewTracker(weather, locator, zerolog.Nop())
	} else {
		tracker = conditions.NewTracker(nil, locator, zerolog.Nop())
	}
	return NewService(NewRepository(db), tracker, locator, filepath.Join(t.TempDir(), "exports"), zerolog.Nop())
}

var chatham = &models.GPSFix{Lat: 41.68, Lon: -69.96}

func seaBreeze() *fixedWeather {
	return &fixedWeather{obs: &models.WeatherObservation{
		WindSpeedKmh:     models.Float(18),
		WindDirectionDeg: models.Float(225),
		AirTempC:         models.Float(16.5),
		PressureHPa:      models.Float(1013),
		WaveHeightM:      models.Float(0.6),
	}}
}

func startInput() StartInput {
	return StartInput{
		Name:       "Dawn at the rip",
		Technique:  "topwater",
		Gear:       models.Gear{Rod: "7' MH", Reel: "4000", Line: "20 lb braid"},
		Conditions: models.Conditions{Clarity: "semi-clear", DepthM: 4.5},
	}
}

func TestService_MissionLifecycle(t *testing.T) {
	env := newTestEnv(t, chatham, seaBreeze())
	ctx := context.Background()

	if _, err := env.svc.Active(); !errors.Is(err, ErrNoActiveMission) {
		t.Fatalf("Active() before start error = %v, want ErrNoActiveMission", err)
	}

	m, err := env.svc.Start(ctx, startInput())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.ID == "" || !m.StartTime.Equal(missionStart) || !m.IsActive() {
		t.Errorf("Start() = %+v", m)
	}
	if m.StartLocation == nil || m.StartLocation.Lat != chatham.Lat {
		t.Errorf("StartLocation = %+v, want Chatham", m.StartLocation)
	}

	if _, err := env.svc.Start(ctx, startInput()); !errors.Is(err, ErrMissionActive) {
		t.Errorf("second Start() error = %v, want ErrMissionActive", err)
	}
	if err := env.svc.DeleteMission(m.ID); !errors.Is(err, ErrMissionActive) {
		t.Errorf("DeleteMission(active) error = %v, want ErrMissionActive", err)
	}

	active, err := env.svc.Active()
	if err != nil || active.ID != m.ID {
		t.Fatalf("Active() = %v, %v", active, err)
	}

	env.advance(95 * time.Minute)
	ended, path, err := env.svc.End(ctx)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.IsActive() || ended.EndLocation == nil {
		t.Errorf("End() = %+v", ended)
	}
	if got := ended.ElapsedLabel(env.clock.Add(time.Hour)); got != "95:00" {
		t.Errorf("ElapsedLabel() after end = %s, want 95:00", got)
	}
	if filepath.Base(path) != "StrikeLog_MissionBundle_"+m.ID+".zip" {
		t.Errorf("End() export path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("bundle not written: %v", err)
	}

	if _, err := env.svc.Active(); !errors.Is(err, ErrNoActiveMission) {
		t.Errorf("Active() after end error = %v, want ErrNoActiveMission", err)
	}
	if _, _, err := env.svc.End(ctx); !errors.Is(err, ErrNoActiveMission) {
		t.Errorf("End() twice error = %v, want ErrNoActiveMission", err)
	}

	missions, err := env.svc.Missions()
	if err != nil || len(missions) != 1 || missions[0].EndTime == nil {
		t.Errorf("Missions() = %+v, %v", missions, err)
	}
}

func TestService_StartValidation(t *testing.T) {
	tests := []struct {
		name string
		in   StartInput
	}{
		{"missing name", StartInput{Technique: "jigging"}},
		{"blank name", StartInput{Name: "   ", Technique: "jigging"}},
		{"missing technique", StartInput{Name: "Evening"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, chatham, nil)
			if _, err := env.svc.Start(context.Background(), tt.in); err == nil {
				t.Fatal("Start() expected error, got nil")
			}
			if _, err := env.svc.Active(); !errors.Is(err, ErrNoActiveMission) {
				t.Errorf("invalid start left an active mission: %v", err)
			}
		})
	}
}

func TestService_RestoreActiveMission(t *testing.T) {
	env := newTestEnv(t, chatham, nil)
	m, err := env.svc.Start(context.Background(), startInput())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// a second service on the same database sees the unfinished mission
	restored := openService(t, env.db, chatham, nil)
	got, err := restored.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if got.ID != m.ID || got.Name != m.Name || got.Gear != m.Gear || got.Conditions != m.Conditions {
		t.Errorf("restored mission = %+v, want %+v", got, m)
	}
}

func TestService_RecordStrike(t *testing.T) {
	env := newTestEnv(t, chatham, seaBreeze())
	ctx := context.Background()

	if _, err := env.svc.RecordStrike(ctx, StrikeInput{Species: "Striped bass"}); !errors.Is(err, ErrNoActiveMission) {
		t.Fatalf("RecordStrike() without mission error = %v, want ErrNoActiveMission", err)
	}

	m, _ := env.svc.Start(ctx, startInput())
	env.advance(12 * time.Minute)

	strike, err := env.svc.RecordStrike(ctx, StrikeInput{
		Species:  " Striped bass ",
		SizeCm:   71,
		Lure:     "pencil popper",
		Released: true,
		Dynamics: models.Dynamics{RetrieveTechnique: "walk the dog", StrikeType: "blowup"},
		Photo:    fakeJPEG,
	})
	if err != nil {
		t.Fatalf("RecordStrike() error = %v", err)
	}

	if strike.Species != "Striped bass" || !strike.Timestamp.Equal(env.clock) {
		t.Errorf("strike = %+v", strike)
	}
	if strike.GPS == nil || strike.GPS.Lat != chatham.Lat {
		t.Errorf("GPS = %+v", strike.GPS)
	}
	if strike.Env == nil || *strike.Env.WindSpeedKmh != 18 {
		t.Errorf("Env = %+v", strike.Env)
	}
	if strike.Assessment == nil || strike.Assessment.WindCardinal8 != "SW" || strike.Assessment.Beaufort == nil || *strike.Assessment.Beaufort != 3 {
		t.Errorf("Assessment = %+v", strike.Assessment)
	}
	if strike.Lunar == nil || strike.Lunar.PhaseName() == "" {
		t.Errorf("Lunar = %+v", strike.Lunar)
	}
	ac := strike.AdvisorContext
	if ac.MissionID != m.ID || ac.Technique != "topwater" || ac.Conditions.Clarity != "semi-clear" {
		t.Errorf("AdvisorContext = %+v", ac)
	}

	strikes, err := env.svc.Strikes(m.ID)
	if err != nil || len(strikes) != 1 {
		t.Fatalf("Strikes() = %v, %v", strikes, err)
	}
	if string(strikes[0].Photo) != string(fakeJPEG) {
		t.Error("photo was not stored")
	}
	if strikes[0].Assessment == nil || strikes[0].Lunar == nil || strikes[0].Dynamics.StrikeType != "blowup" {
		t.Errorf("stored strike lost data: %+v", strikes[0])
	}
}

func TestService_RecordStrikeWithoutPosition(t *testing.T) {
	env := newTestEnv(t, nil, seaBreeze())
	ctx := context.Background()

	m, err := env.svc.Start(ctx, startInput())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.StartLocation != nil {
		t.Errorf("StartLocation = %+v, want nil without a position", m.StartLocation)
	}

	strike, err := env.svc.RecordStrike(ctx, StrikeInput{Species: "Bluefish"})
	if err != nil {
		t.Fatalf("RecordStrike() error = %v", err)
	}
	if strike.GPS != nil || strike.Env != nil || strike.Assessment != nil {
		t.Errorf("strike without position has GPS/Env/Assessment: %+v", strike)
	}
	if strike.Lunar == nil {
		t.Error("Lunar should be computed without a position")
	}
}

func TestService_RecordStrikeWeatherDown(t *testing.T) {
	env := newTestEnv(t, chatham, &fixedWeather{err: errors.New("503")})
	ctx := context.Background()
	env.svc.Start(ctx, startInput())

	strike, err := env.svc.RecordStrike(ctx, StrikeInput{Species: "Fluke"})
	if err != nil {
		t.Fatalf("RecordStrike() error = %v", err)
	}
	if strike.GPS == nil || strike.Env != nil {
		t.Errorf("GPS = %+v, Env = %+v", strike.GPS, strike.Env)
	}
	if strike.Assessment == nil || strike.Assessment.Score != 6 {
		// baseline 5, semi-clear +1, nothing else known
		t.Errorf("Assessment = %+v, want score 6", strike.Assessment)
	}
}

func TestService_RecordStrikePhoto(t *testing.T) {
	env := newTestEnv(t, chatham, nil)
	ctx := context.Background()
	env.svc.Start(ctx, startInput())

	dir := t.TempDir()
	jpegPath := filepath.Join(dir, "fish.jpg")
	pngPath := filepath.Join(dir, "fish.png")
	os.WriteFile(jpegPath, fakeJPEG, 0o644)
	os.WriteFile(pngPath, []byte("\x89PNG\r\n\x1a\n"), 0o644)

	tests := []struct {
		name    string
		in      StrikeInput
		wantErr error
	}{
		{"jpeg bytes", StrikeInput{Photo: fakeJPEG}, nil},
		{"jpeg file", StrikeInput{PhotoPath: jpegPath}, nil},
		{"png bytes", StrikeInput{Photo: []byte("\x89PNG")}, ErrNotJPEG},
		{"png file", StrikeInput{PhotoPath: pngPath}, ErrNotJPEG},
		{"missing file", StrikeInput{PhotoPath: filepath.Join(dir, "nope.jpg")}, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strike, err := env.svc.RecordStrike(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RecordStrike() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RecordStrike() error = %v", err)
			}
			if !strike.HasPhoto() {
				t.Error("strike has no photo")
			}
		})
	}
}

func TestService_NegativeSizeRejected(t *testing.T) {
	env := newTestEnv(t, chatham, nil)
	env.svc.Start(context.Background(), startInput())
	if _, err := env.svc.RecordStrike(context.Background(), StrikeInput{SizeCm: -4}); err == nil {
		t.Error("RecordStrike() with negative size expected error")
	}
}

func TestService_CountAndDelete(t *testing.T) {
	env := newTestEnv(t, chatham, nil)
	ctx := context.Background()
	m, _ := env.svc.Start(ctx, startInput())

	var ids []string
	for _, species := range []string{"Scup", "Fluke", "Bluefish"} {
		env.advance(time.Minute)
		st, err := env.svc.RecordStrike(ctx, StrikeInput{Species: species})
		if err != nil {
			t.Fatalf("RecordStrike(%s) error = %v", species, err)
		}
		ids = append(ids, st.ID)
	}

	if n, err := env.svc.StrikeCount(m.ID); err != nil || n != 3 {
		t.Fatalf("StrikeCount() = %d, %v, want 3", n, err)
	}
	if n, _ := env.svc.StrikeCount("nope"); n != 0 {
		t.Errorf("StrikeCount(unknown) = %d, want 0", n)
	}

	if err := env.svc.DeleteStrike(ids[1]); err != nil {
		t.Fatalf("DeleteStrike() error = %v", err)
	}
	if err := env.svc.DeleteStrike(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteStrike() twice error = %v, want ErrNotFound", err)
	}
	strikes, _ := env.svc.Strikes(m.ID)
	if len(strikes) != 2 || strikes[0].Species != "Scup" || strikes[1].Species != "Bluefish" {
		t.Errorf("strikes after delete = %+v", strikes)
	}

	env.svc.End(ctx)
	if err := env.svc.DeleteMission(m.ID); err != nil {
		t.Fatalf("DeleteMission() error = %v", err)
	}
	if n, _ := env.svc.StrikeCount(m.ID); n != 0 {
		t.Errorf("strikes left after DeleteMission = %d", n)
	}
	if _, err := env.svc.Mission(m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Mission() after delete error = %v, want ErrNotFound", err)
	}
}

func TestIsJPEG(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"jpeg", fakeJPEG, true},
		{"empty", nil, false},
		{"too short", []byte{0xFF, 0xD8}, false},
		{"png", []byte("\x89PNG\r\n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsJPEG(tt.data); got != tt.want {
				t.Errorf("IsJPEG() = %v, want %v", got, tt.want)
			}
		})
	}
}
