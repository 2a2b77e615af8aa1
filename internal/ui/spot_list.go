package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"
	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/models"
)

// spotItem wraps a Spot for use in a list
type spotItem struct {
	spot models.Spot
}

// FilterValue implements list.Item
func (s spotItem) FilterValue() string {
	return s.spot.Name
}

// Title implements list.DefaultItem
func (s spotItem) Title() string {
	return s.spot.Name
}

// Description implements list.DefaultItem
func (s spotItem) Description() string {
	desc := fmt.Sprintf("%.4f, %.4f", s.spot.Lat, s.spot.Lon)
	if s.spot.DepthM > 0 {
		desc += fmt.Sprintf(" · %.1f m", s.spot.DepthM)
	}
	if s.spot.BottomType != "" {
		desc += " · " + s.spot.BottomType
	}
	if s.spot.HasWeather() {
		w := s.spot.Weather
		desc += fmt.Sprintf(" · wind %s %s · updated %s",
			formatValue(w.WindSpeedKmh, "%.0f km/h"),
			environment.Cardinal8(w.WindDirectionDeg),
			humanize.Time(*s.spot.LastUpdate))
	}
	return desc
}

// createSpotList creates a list.Model from saved spots
func createSpotList(spots []models.Spot, width, height int) list.Model {
	l := list.New(spotItems(spots), list.NewDefaultDelegate(), width, height)
	l.Title = "Saved Spots"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

func spotItems(spots []models.Spot) []list.Item {
	items := make([]list.Item, len(spots))
	for i, spot := range spots {
		items[i] = spotItem{spot: spot}
	}
	return items
}

// missionItem wraps a Mission for the log list
type missionItem struct {
	mission models.Mission
	strikes int
}

func (m missionItem) FilterValue() string {
	return m.mission.Name
}

func (m missionItem) Title() string {
	title := m.mission.Name
	if m.mission.IsActive() {
		title += " (active)"
	}
	return title
}

func (m missionItem) Description() string {
	mi := m.mission
	desc := fmt.Sprintf("%s · %s", mi.Technique, mi.StartTime.Local().Format("Mon Jan 2 15:04"))
	if mi.EndTime != nil {
		desc += " · " + strings.TrimSpace(humanize.RelTime(mi.StartTime, *mi.EndTime, "", ""))
	}
	return desc + " · " + plural(m.strikes, "strike")
}

func createMissionList(missions []models.Mission, width, height int) list.Model {
	l := list.New(missionItems(missions, nil), list.NewDefaultDelegate(), width, height)
	l.Title = "Mission Log"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

func missionItems(missions []models.Mission, counts map[string]int) []list.Item {
	items := make([]list.Item, len(missions))
	for i, mi := range missions {
		items[i] = missionItem{mission: mi, strikes: counts[mi.ID]}
	}
	return items
}
