package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/config"
	"github.com/ngmaloney/strike-log/internal/database"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/logging"
	"github.com/ngmaloney/strike-log/internal/missions"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/openmeteo"
	"github.com/ngmaloney/strike-log/internal/spots"
	"github.com/ngmaloney/strike-log/internal/ui"
	"github.com/rs/zerolog"
)

type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *sql.DB
	locator  *geocoding.Locator
	geocoder *geocoding.Geocoder
	tracker  *conditions.Tracker
	spots    *spots.Service
	missions *missions.Service
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the selected command. Returning instead of exiting lets the
// deferred cleanup close the database and log file.
func run(args []string) error {
	fs := flag.NewFlagSet("strikelog", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "Path to the config file")
	showConditions := fs.Bool("conditions", false, "Print current conditions and exit")
	location := fs.String("location", "", "Place name or \"lat, lon\" to use instead of the configured location")
	importSpots := fs.String("import-spots", "", "Import spots from a JSON export, shapefile or zipped shapefile")
	exportSpots := fs.Bool("export-spots", false, "Export saved spots to the export directory")
	importBundle := fs.String("import-bundle", "", "Import a mission bundle (.zip)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	a, cleanup, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if *location != "" {
		if err := a.setLocation(*location); err != nil {
			return fmt.Errorf("setting location: %w", err)
		}
	}

	switch {
	case *importSpots != "":
		return a.importSpots(*importSpots)
	case *exportSpots:
		return a.exportSpots()
	case *importBundle != "":
		return a.importBundle(*importBundle)
	case *showConditions:
		return a.printConditions()
	default:
		return a.runTUI()
	}
}

// setup loads config and builds every service the commands need.
func setup(configPath string) (*app, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	log, closer, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.LogPath(),
	})
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(database.DBPath(cfg.DataDir))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var home *models.GPSFix
	if cfg.HasLocation() {
		home = &models.GPSFix{
			Lat:    *cfg.Location.Lat,
			Lon:    *cfg.Location.Lon,
			Source: geocoding.SourceConfig,
			At:     time.Now(),
		}
	}

	weather := openmeteo.NewClient(cfg.Weather.ForecastURL, cfg.Weather.MarineURL, cfg.Weather.Timeout)
	locator := geocoding.NewLocator(home)
	tracker := conditions.NewTracker(weather, locator, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		locator:  locator,
		geocoder: geocoding.NewGeocoder(cfg.Geocoding.URL, cfg.Geocoding.UserAgent),
		tracker:  tracker,
		spots:    spots.NewService(spots.NewRepository(db), weather, log),
		missions: missions.NewService(missions.NewRepository(db), tracker, locator, cfg.ExportPath(), log),
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Bool("has_location", home != nil).
		Msg("strikelog starting")

	cleanup := func() {
		db.Close()
		if closer != nil {
			closer.Close()
		}
	}
	return a, cleanup, nil
}

func (a *app) setLocation(query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Weather.Timeout)
	defer cancel()

	fix, err := a.geocoder.Geocode(ctx, query)
	if err != nil {
		return err
	}
	return a.locator.Apply(*fix)
}

func (a *app) runTUI() error {
	p := tea.NewProgram(ui.NewModel(ui.Deps{
		Missions:  a.missions,
		Spots:     a.spots,
		Tracker:   a.tracker,
		Locator:   a.locator,
		Geocoder:  a.geocoder,
		ExportDir: a.cfg.ExportPath(),
	}), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

func (a *app) printConditions() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Weather.Timeout)
	defer cancel()

	clarity := ""
	if active, err := a.missions.Active(); err == nil {
		clarity = active.Conditions.Clarity
	}

	snap, err := a.tracker.Snapshot(ctx, clarity, time.Now())
	if err != nil {
		return fmt.Errorf("reading conditions: %w", err)
	}
	fmt.Println(ui.ConditionsReport(snap))
	return nil
}

func (a *app) importSpots(path string) error {
	n, err := a.spots.ImportFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d spots from %s\n", n, path)
	return nil
}

func (a *app) exportSpots() error {
	path, err := a.spots.ExportFile(a.cfg.ExportPath())
	if err != nil {
		return err
	}
	fmt.Printf("Spots exported to %s\n", path)
	return nil
}

func (a *app) importBundle(path string) error {
	mission, n, err := a.missions.ImportBundle(path)
	if err != nil {
		return err
	}
	fmt.Printf("Imported mission %q with %d strikes\n", mission.Name, n)
	return nil
}
