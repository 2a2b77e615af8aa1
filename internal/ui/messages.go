package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/missions"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/spots"
)

// Message types for async operations

// conditionsMsg is sent when a conditions snapshot has been taken
type conditionsMsg struct {
	snapshot *conditions.Snapshot
	nearest  *models.Spot
	distKm   float64
	err      error
}

// missionRestoredMsg carries the unfinished mission found at launch, if any
type missionRestoredMsg struct {
	mission *models.Mission
	strikes []models.Strike
	err     error
}

// missionStartedMsg is sent when a mission has been started
type missionStartedMsg struct {
	mission *models.Mission
	err     error
}

// missionEndedMsg is sent when the active mission has been ended
type missionEndedMsg struct {
	mission    *models.Mission
	bundlePath string
	err        error
}

// strikeRecordedMsg is sent when a strike has been saved
type strikeRecordedMsg struct {
	strike *models.Strike
	err    error
}

// missionsLoadedMsg carries the mission log and each mission's strike count
type missionsLoadedMsg struct {
	missions []models.Mission
	counts   map[string]int
	err      error
}

// strikesLoadedMsg carries the strikes of one logged mission
type strikesLoadedMsg struct {
	missionID string
	strikes   []models.Strike
	err       error
}

// spotsLoadedMsg carries the saved spots
type spotsLoadedMsg struct {
	spots []models.Spot
	err   error
}

// spotsChangedMsg is sent after a spot operation; the list is reloaded
type spotsChangedMsg struct {
	status string
	err    error
}

// geocodeMsg is sent when geocoding completes
type geocodeMsg struct {
	fix *models.GPSFix
	err error
}

// deletedMsg is sent after a logged mission or strike has been removed
type deletedMsg struct {
	missionID string
	strikeID  string // empty when the whole mission was deleted
	err       error
}

// exportedMsg is sent when a file has been written
type exportedMsg struct {
	path string
	err  error
}

// tickMsg drives the mission clock
type tickMsg time.Time

// errMsg is a message type for errors
type errMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchConditions takes a snapshot at the current position and looks up the
// nearest saved spot
func fetchConditions(tracker *conditions.Tracker, spotSvc *spots.Service, clarity string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		snap, err := tracker.Snapshot(ctx, clarity, time.Now())
		if err != nil {
			return conditionsMsg{err: err}
		}
		msg := conditionsMsg{snapshot: snap}
		if spotSvc != nil {
			if spot, dist, err := spotSvc.Nearest(snap.Fix.Lat, snap.Fix.Lon); err == nil {
				msg.nearest, msg.distKm = spot, dist
			}
		}
		return msg
	}
}

// restoreMission looks for a mission left running when the app last closed
func restoreMission(svc *missions.Service) tea.Cmd {
	return func() tea.Msg {
		m, err := svc.Active()
		if errors.Is(err, missions.ErrNoActiveMission) {
			return missionRestoredMsg{}
		}
		if err != nil {
			return missionRestoredMsg{err: err}
		}
		strikes, err := svc.Strikes(m.ID)
		return missionRestoredMsg{mission: m, strikes: strikes, err: err}
	}
}

func startMission(svc *missions.Service, in missions.StartInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m, err := svc.Start(ctx, in)
		return missionStartedMsg{mission: m, err: err}
	}
}

func endMission(svc *missions.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		m, path, err := svc.End(ctx)
		return missionEndedMsg{mission: m, bundlePath: path, err: err}
	}
}

func recordStrike(svc *missions.Service, in missions.StrikeInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s, err := svc.RecordStrike(ctx, in)
		return strikeRecordedMsg{strike: s, err: err}
	}
}

func loadMissions(svc *missions.Service) tea.Cmd {
	return func() tea.Msg {
		list, err := svc.Missions()
		if err != nil {
			return missionsLoadedMsg{err: err}
		}
		counts := make(map[string]int, len(list))
		for _, mi := range list {
			n, err := svc.StrikeCount(mi.ID)
			if err != nil {
				return missionsLoadedMsg{err: err}
			}
			counts[mi.ID] = n
		}
		return missionsLoadedMsg{missions: list, counts: counts}
	}
}

func deleteStrike(svc *missions.Service, missionID, strikeID string) tea.Cmd {
	return func() tea.Msg {
		err := svc.DeleteStrike(strikeID)
		return deletedMsg{missionID: missionID, strikeID: strikeID, err: err}
	}
}

func deleteMission(svc *missions.Service, missionID string) tea.Cmd {
	return func() tea.Msg {
		err := svc.DeleteMission(missionID)
		return deletedMsg{missionID: missionID, err: err}
	}
}

func loadStrikes(svc *missions.Service, missionID string) tea.Cmd {
	return func() tea.Msg {
		strikes, err := svc.Strikes(missionID)
		return strikesLoadedMsg{missionID: missionID, strikes: strikes, err: err}
	}
}

func exportMission(svc *missions.Service, missionID string, f missions.Format) tea.Cmd {
	return func() tea.Msg {
		path, err := svc.Export(missionID, f)
		return exportedMsg{path: path, err: err}
	}
}

func loadSpots(svc *spots.Service) tea.Cmd {
	return func() tea.Msg {
		list, err := svc.ListSpots()
		return spotsLoadedMsg{spots: list, err: err}
	}
}

func addSpot(svc *spots.Service, name string, lat, lon, depth float64, bottom string) tea.Cmd {
	return func() tea.Msg {
		spot, err := svc.AddSpot(name, lat, lon, depth, bottom)
		if err != nil {
			return spotsChangedMsg{err: err}
		}
		return spotsChangedMsg{status: "Saved " + spot.Name}
	}
}

func deleteSpot(svc *spots.Service, spot models.Spot) tea.Cmd {
	return func() tea.Msg {
		if err := svc.DeleteSpot(spot.ID); err != nil {
			return spotsChangedMsg{err: err}
		}
		return spotsChangedMsg{status: "Deleted " + spot.Name}
	}
}

func refreshSpot(svc *spots.Service, spot models.Spot) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := svc.RefreshWeather(ctx, spot.ID); err != nil {
			return spotsChangedMsg{err: err}
		}
		return spotsChangedMsg{status: "Weather updated for " + spot.Name}
	}
}

func refreshAllSpots(svc *spots.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		n, err := svc.RefreshAll(ctx)
		if err != nil && n == 0 {
			return spotsChangedMsg{err: err}
		}
		status := "Weather updated for " + plural(n, "spot")
		if err != nil {
			status += " (some failed)"
		}
		return spotsChangedMsg{status: status}
	}
}

func exportSpots(svc *spots.Service, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := svc.ExportFile(dir)
		return exportedMsg{path: path, err: err}
	}
}

// geocodeLocation performs geocoding in the background
func geocodeLocation(geocoder *geocoding.Geocoder, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fix, err := geocoder.Geocode(ctx, query)
		return geocodeMsg{fix: fix, err: err}
	}
}
