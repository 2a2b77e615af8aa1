package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/models"
)

// formatValue formats an optional reading, or the no-data marker
func formatValue(v *float64, format string) string {
	if v == nil {
		return environment.NoData
	}
	return fmt.Sprintf(format, *v)
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + valueStyle.Render(value)
}

// renderConditions renders the latest snapshot without borders
func (m Model) renderConditions() string {
	if m.snapshot == nil {
		if m.loadingConditions {
			return m.spinner.View() + " Reading conditions..."
		}
		if m.conditionsErr != nil {
			return errorStyle.Render("✗ "+m.conditionsErr.Error()) + "\n" +
				mutedStyle.Render("Press / to set your position.")
		}
		return mutedStyle.Render("No conditions yet")
	}

	s := m.snapshot
	a := s.Assessment
	var lines []string

	// Position
	fix := s.Fix
	pos := geocoding.FormatCoords(&fix)
	if fix.Source != "" {
		pos += " (" + fix.Source + ")"
	}
	if m.deps.Locator != nil {
		if age := m.deps.Locator.Freshness(); age >= 0 {
			pos += mutedStyle.Render(" set " + humanize.Time(time.Now().Add(-age)))
		}
	}
	lines = append(lines, row("Position", pos))
	if fix.AccuracyM > 0 {
		lines = append(lines, row("Accuracy", fmt.Sprintf("±%.0f m, %s", fix.AccuracyM, geocoding.AccuracyGrade(&fix))))
	}
	if m.nearest != nil {
		lines = append(lines, row("Nearest", fmt.Sprintf("%s, %.1f km", m.nearest.Name, m.nearestKm)))
	}

	// Weather
	lines = append(lines, "")
	if s.Weather == nil {
		msg := "Weather unavailable"
		if s.WeatherErr != nil {
			msg += ": " + s.WeatherErr.Error()
		}
		lines = append(lines, mutedStyle.Render(msg))
	} else {
		w := s.Weather
		wind := formatValue(w.WindSpeedKmh, "%.0f km/h") + " " + a.WindCardinal16
		if a.Beaufort != nil {
			wind += fmt.Sprintf(" · Beaufort %d", *a.Beaufort)
		}
		lines = append(lines,
			row("Wind", wind),
			row("Air", formatValue(w.AirTempC, "%.1f°C")),
			row("Water", formatValue(w.WaterTempC, "%.1f°C")),
			row("Pressure", formatValue(w.PressureHPa, "%.1f hPa")+" "+string(a.PressureTrend)),
			row("Waves", formatValue(w.WaveHeightM, "%.1f m")+" "+string(a.SeaState)),
			row("Cloud", formatValue(w.CloudCoverPct, "%.0f%%")),
		)
	}

	score := scoreStyle(a.Score).Render(fmt.Sprintf("%d/10", a.Score))
	lines = append(lines, "", labelStyle.Render(fmt.Sprintf("%-10s", "Score"))+" "+score)

	// Moon and sun
	moon := s.Lunar
	lines = append(lines, "",
		row("Moon", fmt.Sprintf("%s %s · %.0f%% lit · day %.1f", moon.Icon(), moon.PhaseName(), moon.IlluminationPct, moon.AgeDays)),
		row("Tide", string(a.Tide)+mutedStyle.Render(" (estimate)")),
	)
	rise, set := s.SunLabels(time.Local)
	sun := fmt.Sprintf("↑ %s  ↓ %s", rise, set)
	if s.SunErr == nil {
		sun += fmt.Sprintf(" · %s of daylight", formatDuration(s.Sun.DayLength()))
	}
	lines = append(lines, row("Sun", sun))

	lines = append(lines, "", mutedStyle.Render("Updated "+humanize.Time(s.At)))
	return strings.Join(lines, "\n")
}

// renderMission renders the active mission panel
func (m Model) renderMission() string {
	if m.mission == nil {
		return mutedStyle.Render("No active mission. Press M to start one.")
	}
	mi := m.mission
	lines := []string{
		valueStyle.Bold(true).Render(mi.Name) + "  " + activeTitleStyle.Render(mi.ElapsedLabel(m.now)),
		row("Technique", mi.Technique),
	}
	if gear := formatGear(mi.Gear); gear != "" {
		lines = append(lines, row("Gear", gear))
	}
	if mi.SpotID != "" {
		lines = append(lines, row("Spot", m.spotName(mi.SpotID)))
	}
	if mi.Conditions.Clarity != "" {
		lines = append(lines, row("Clarity", mi.Conditions.Clarity))
	}
	lines = append(lines, row("Strikes", fmt.Sprint(len(m.strikes))))

	if len(m.strikes) > 0 {
		lines = append(lines, "", labelStyle.Render("Recent strikes:"))
		start := len(m.strikes) - 5
		if start < 0 {
			start = 0
		}
		for i := len(m.strikes) - 1; i >= start; i-- {
			lines = append(lines, "  "+formatStrike(m.strikes[i]))
		}
	}
	return strings.Join(lines, "\n")
}

// renderStrikes renders every strike of a logged mission, marking the one at
// cursor. A negative cursor marks none.
func renderStrikes(strikes []models.Strike, cursor int) string {
	if len(strikes) == 0 {
		return mutedStyle.Render("No strikes recorded")
	}
	lines := make([]string, len(strikes))
	for i, s := range strikes {
		marker := "  "
		if i == cursor {
			marker = activeMarkerStyle.Render("▸ ")
		}
		lines[i] = marker + formatStrike(s)
	}
	return strings.Join(lines, "\n")
}

func formatStrike(s models.Strike) string {
	species := s.Species
	if species == "" {
		species = "Unknown species"
	}
	parts := []string{s.Timestamp.Local().Format("15:04"), species}
	if s.SizeCm > 0 {
		parts = append(parts, fmt.Sprintf("%.0f cm", s.SizeCm))
	}
	if s.WeightG > 0 {
		parts = append(parts, fmt.Sprintf("%.0f g", s.WeightG))
	}
	if s.Lure != "" {
		parts = append(parts, s.Lure)
	}
	if s.Released {
		parts = append(parts, "released")
	}
	if s.Assessment != nil {
		parts = append(parts, fmt.Sprintf("score %d", s.Assessment.Score))
	}
	if s.Lunar != nil {
		parts = append(parts, s.Lunar.Icon())
	}
	if s.HasPhoto() {
		parts = append(parts, "📷 "+humanize.Bytes(uint64(len(s.Photo))))
	}
	return strings.Join(parts, " · ")
}

func formatGear(g models.Gear) string {
	var parts []string
	for _, p := range []string{g.Rod, g.Reel, g.Line} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, mins)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// ConditionsReport renders a snapshot for printing outside the TUI
func ConditionsReport(snap *conditions.Snapshot) string {
	m := Model{snapshot: snap}
	return lipgloss.JoinVertical(lipgloss.Left,
		header(),
		sectionHeaderStyle.Render("CONDITIONS"),
		m.renderConditions(),
	)
}
