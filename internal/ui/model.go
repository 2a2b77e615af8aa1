package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ngmaloney/strike-log/internal/conditions"
	"github.com/ngmaloney/strike-log/internal/environment"
	"github.com/ngmaloney/strike-log/internal/geocoding"
	"github.com/ngmaloney/strike-log/internal/missions"
	"github.com/ngmaloney/strike-log/internal/models"
	"github.com/ngmaloney/strike-log/internal/spots"
)

// AppState represents the current state of the application
type AppState int

const (
	StateConditions  AppState = iota // Current conditions (home screen)
	StateLocate                      // Set position by place name or coordinates
	StateMissionForm                 // Start a mission
	StateMission                     // Active mission
	StateStrikeForm                  // Record a strike
	StateSpots                       // Saved spots
	StateSpotForm                    // Add a spot
	StateLog                         // Past missions
	StateError                       // Error state
)

// Mission form inputs
const (
	mfName = iota
	mfTechnique
	mfRod
	mfReel
	mfLine
	mfSpot
	mfSeaState
	mfClarity
	mfDepth
	mfBottom
	mfBaitfish
	mfLight
	mfTide
	mfNotes
)

// Strike form inputs
const (
	sfSpecies = iota
	sfSize
	sfWeight
	sfLure
	sfReleased
	sfRetrieve
	sfSpeed
	sfDepth
	sfType
	sfPhoto
	sfNotes
)

// Spot form inputs
const (
	pfName = iota
	pfLat
	pfLon
	pfDepth
	pfBottom
)

// Deps are the services the UI drives
type Deps struct {
	Missions  *missions.Service
	Spots     *spots.Service
	Tracker   *conditions.Tracker
	Locator   *geocoding.Locator
	Geocoder  *geocoding.Geocoder
	ExportDir string
}

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int
	err    error

	deps Deps

	// Status line below the current view
	status    string
	statusErr bool

	// Locate
	searchInput textinput.Model

	// Conditions
	spinner           spinner.Model
	snapshot          *conditions.Snapshot
	nearest           *models.Spot
	nearestKm         float64
	loadingConditions bool
	conditionsErr     error

	// Mission
	mission *models.Mission
	strikes []models.Strike
	now     time.Time
	saving  bool

	// Forms
	missionForm form
	strikeForm  form
	spotForm    form
	formErr     error

	// Spots
	spots    []models.Spot
	spotList list.Model

	// Log
	logList        list.Model
	logMissionID   string
	logStrikes     []models.Strike
	logStrikeFocus bool
	logCursor      int
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	ti := textinput.New()
	ti.Placeholder = "Place name or lat, lon (e.g. Chatham, MA or 41.68, -69.96)..."
	ti.CharLimit = 100
	ti.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		state:       StateConditions,
		deps:        deps,
		searchInput: ti,
		spinner:     s,
		now:         time.Now(),
		spotList:    createSpotList(nil, 0, 0),
		logList:     createMissionList(nil, 0, 0),
	}
}

// Init restores an unfinished mission, loads spots and reads conditions
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.deps.Missions != nil {
		cmds = append(cmds, restoreMission(m.deps.Missions))
	}
	if m.deps.Spots != nil {
		cmds = append(cmds, loadSpots(m.deps.Spots))
	}
	if m.deps.Tracker != nil {
		cmds = append(cmds, fetchConditions(m.deps.Tracker, m.deps.Spots, m.clarity()))
	}
	return tea.Batch(cmds...)
}

// clarity is the water clarity the angler entered for the active mission
func (m Model) clarity() string {
	if m.mission == nil {
		return ""
	}
	return m.mission.Conditions.Clarity
}

func (m Model) refreshConditions() (Model, tea.Cmd) {
	if m.deps.Tracker == nil {
		return m, nil
	}
	m.loadingConditions = true
	return m, tea.Batch(m.spinner.Tick, fetchConditions(m.deps.Tracker, m.deps.Spots, m.clarity()))
}

// moved forgets the pressure history, which belongs to the old position,
// and reads conditions at the new one
func (m Model) moved() (Model, tea.Cmd) {
	if m.deps.Tracker != nil {
		m.deps.Tracker.Reset()
	}
	m.snapshot = nil
	return m.refreshConditions()
}

func (m *Model) setStatus(msg string, err error) {
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return
	}
	m.status, m.statusErr = msg, false
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.spotList.SetSize(msg.Width-4, msg.Height-10)
		m.logList.SetSize(msg.Width-4, (msg.Height-10)/2)
		return m, nil
	}

	// Handle custom messages
	switch msg := msg.(type) {
	case errMsg:
		m.err = msg.err
		m.state = StateError
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if m.mission != nil {
			return m, tick()
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loadingConditions || m.saving {
			return m, cmd
		}
		return m, nil

	case conditionsMsg:
		m.loadingConditions = false
		if msg.err != nil {
			// Keep the previous snapshot if there is one
			m.conditionsErr = msg.err
			return m, nil
		}
		m.conditionsErr = nil
		m.snapshot = msg.snapshot
		m.nearest, m.nearestKm = msg.nearest, msg.distKm
		return m, nil

	case missionRestoredMsg:
		if msg.err != nil {
			m.setStatus("", fmt.Errorf("restoring mission: %w", msg.err))
			return m, nil
		}
		if msg.mission == nil {
			return m, nil
		}
		m.mission = msg.mission
		m.strikes = msg.strikes
		m.state = StateMission
		m.setStatus("Resumed mission "+msg.mission.Name, nil)
		return m, tick()

	case missionStartedMsg:
		m.saving = false
		if msg.err != nil {
			m.formErr = msg.err
			return m, nil
		}
		m.formErr = nil
		m.mission = msg.mission
		m.strikes = nil
		m.now = time.Now()
		m.state = StateMission
		m.setStatus("Mission started", nil)
		// Re-read conditions with the mission's clarity
		m, cmd = m.refreshConditions()
		return m, tea.Batch(cmd, tick())

	case missionEndedMsg:
		m.saving = false
		if msg.mission == nil && msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		m.mission = nil
		m.strikes = nil
		m.state = StateConditions
		if msg.err != nil {
			m.setStatus("", fmt.Errorf("mission ended but %w", msg.err))
		} else {
			m.setStatus("Mission ended. Bundle saved to "+msg.bundlePath, nil)
		}
		return m, nil

	case strikeRecordedMsg:
		m.saving = false
		if msg.err != nil {
			m.formErr = msg.err
			return m, nil
		}
		m.formErr = nil
		m.strikes = append(m.strikes, *msg.strike)
		m.state = StateMission
		m.setStatus(fmt.Sprintf("Strike #%d logged", len(m.strikes)), nil)
		return m, nil

	case spotsLoadedMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		m.spots = msg.spots
		cmd = m.spotList.SetItems(spotItems(msg.spots))
		return m, cmd

	case spotsChangedMsg:
		m.saving = false
		if msg.err != nil {
			if m.state == StateSpotForm {
				m.formErr = msg.err
				return m, nil
			}
			m.setStatus("", msg.err)
			return m, loadSpots(m.deps.Spots)
		}
		if m.state == StateSpotForm {
			m.formErr = nil
			m.state = StateSpots
		}
		m.setStatus(msg.status, nil)
		return m, loadSpots(m.deps.Spots)

	case missionsLoadedMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		cmd = m.logList.SetItems(missionItems(msg.missions, msg.counts))
		return m, cmd

	case strikesLoadedMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		m.logMissionID = msg.missionID
		m.logStrikes = msg.strikes
		if m.logCursor >= len(m.logStrikes) {
			m.logCursor = len(m.logStrikes) - 1
		}
		if len(m.logStrikes) == 0 {
			m.logStrikeFocus, m.logCursor = false, 0
		}
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.setStatus("", msg.err)
			return m, nil
		}
		if msg.strikeID == "" {
			m.logMissionID, m.logStrikes = "", nil
			m.logStrikeFocus, m.logCursor = false, 0
			m.setStatus("Mission deleted", nil)
			return m, loadMissions(m.deps.Missions)
		}
		// The active mission's panel lists its strikes too
		if m.mission != nil && m.mission.ID == msg.missionID {
			var kept []models.Strike
			for _, st := range m.strikes {
				if st.ID != msg.strikeID {
					kept = append(kept, st)
				}
			}
			m.strikes = kept
		}
		m.setStatus("Strike deleted", nil)
		return m, tea.Batch(
			loadStrikes(m.deps.Missions, msg.missionID),
			loadMissions(m.deps.Missions),
		)

	case exportedMsg:
		m.setStatus("Exported to "+msg.path, msg.err)
		return m, nil

	case geocodeMsg:
		m.loadingConditions = false
		if msg.err != nil {
			m.formErr = fmt.Errorf("geocoding failed: %w", msg.err)
			m.state = StateLocate
			return m, nil
		}
		if err := m.deps.Locator.Apply(*msg.fix); err != nil {
			m.formErr = err
			m.state = StateLocate
			return m, nil
		}
		m.formErr = nil
		m.state = StateConditions
		m.setStatus("Position set to "+geocoding.FormatCoords(msg.fix), nil)
		return m.moved()
	}

	// Handle keyboard input
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		// Global keys
		if keyMsg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// State-specific handling
		switch m.state {
		case StateConditions:
			return m.handleConditionsKeys(keyMsg)
		case StateLocate:
			return m.handleLocateInput(keyMsg)
		case StateMissionForm:
			return m.handleMissionForm(keyMsg)
		case StateMission:
			return m.handleMissionKeys(keyMsg)
		case StateStrikeForm:
			return m.handleStrikeForm(keyMsg)
		case StateSpots:
			return m.handleSpotList(keyMsg)
		case StateSpotForm:
			return m.handleSpotForm(keyMsg)
		case StateLog:
			return m.handleLogList(keyMsg)
		case StateError:
			// Any key returns to conditions
			m.state = StateConditions
			m.err = nil
			return m, nil
		}
	}

	return m, nil
}

func (m Model) handleConditionsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		return m.refreshConditions()
	case "/":
		m.state = StateLocate
		m.formErr = nil
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		return m, textinput.Blink
	case "m":
		if m.mission != nil {
			m.state = StateMission
			return m, nil
		}
		return m.openMissionForm()
	case "s":
		m.state = StateSpots
		return m, loadSpots(m.deps.Spots)
	case "l":
		m.state = StateLog
		m.logMissionID, m.logStrikes = "", nil
		return m, loadMissions(m.deps.Missions)
	}
	return m, nil
}

// handleLocateInput handles keyboard input in the locate state
func (m Model) handleLocateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateConditions
		m.formErr = nil
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			return m, nil
		}
		m.formErr = nil
		m.loadingConditions = true
		return m, tea.Batch(m.spinner.Tick, geocodeLocation(m.deps.Geocoder, query))
	}

	// Clear error when typing
	m.formErr = nil
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) openMissionForm() (tea.Model, tea.Cmd) {
	spot := ""
	if m.nearest != nil && m.nearestKm < 0.5 {
		spot = m.nearest.Name
	}
	m.missionForm = newForm("Start Mission",
		field{label: "Name", placeholder: "Evening at the rip", required: true},
		field{label: "Technique", placeholder: "topwater, jigging, bait...", required: true},
		field{label: "Rod"},
		field{label: "Reel"},
		field{label: "Line"},
		field{label: "Spot", placeholder: "saved spot name", value: spot},
		field{label: "Sea state"},
		field{label: "Clarity", placeholder: strings.Join(environment.Clarities, " / ")},
		field{label: "Depth (m)"},
		field{label: "Bottom"},
		field{label: "Baitfish"},
		field{label: "Light"},
		field{label: "Tide"},
		field{label: "Notes"},
	)
	m.formErr = nil
	m.state = StateMissionForm
	return m, textinput.Blink
}

func (m Model) handleMissionForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case msg.Type == tea.KeyEsc:
		m.state = StateConditions
		m.formErr = nil
		return m, nil
	case msg.Type == tea.KeyCtrlS, msg.Type == tea.KeyEnter && m.missionForm.onLast():
		in, err := m.missionInput()
		if err != nil {
			m.formErr = err
			return m, nil
		}
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, startMission(m.deps.Missions, in)
	case msg.Type == tea.KeyEnter:
		m.missionForm = m.missionForm.move(1)
		return m, textinput.Blink
	}

	m.missionForm, cmd = m.missionForm.Update(msg)
	return m, cmd
}

// missionInput reads the mission form
func (m *Model) missionInput() (missions.StartInput, error) {
	f := m.missionForm
	if label := f.missing(); label != "" {
		return missions.StartInput{}, fmt.Errorf("%s is required", label)
	}
	depth, err := f.float(mfDepth)
	if err != nil {
		return missions.StartInput{}, err
	}
	clarity := strings.ToLower(f.value(mfClarity))
	if clarity != "" && environment.ClarityScore(clarity) == 0 && clarity != environment.ClarityTurbid {
		return missions.StartInput{}, fmt.Errorf("clarity must be one of %s", strings.Join(environment.Clarities, ", "))
	}

	in := missions.StartInput{
		Name:      f.value(mfName),
		Technique: f.value(mfTechnique),
		Gear: models.Gear{
			Rod:  f.value(mfRod),
			Reel: f.value(mfReel),
			Line: f.value(mfLine),
		},
		Conditions: models.Conditions{
			SeaState:   f.value(mfSeaState),
			Clarity:    clarity,
			DepthM:     depth,
			BottomType: f.value(mfBottom),
			Baitfish:   f.value(mfBaitfish),
			Light:      f.value(mfLight),
			Tide:       f.value(mfTide),
		},
		Notes: f.value(mfNotes),
	}

	if name := f.value(mfSpot); name != "" {
		spot := m.findSpot(name)
		if spot == nil {
			return missions.StartInput{}, fmt.Errorf("no saved spot named %q", name)
		}
		in.SpotID = spot.ID
		if in.Conditions.DepthM == 0 {
			in.Conditions.DepthM = spot.DepthM
		}
		if in.Conditions.BottomType == "" {
			in.Conditions.BottomType = spot.BottomType
		}
		// Fishing a saved spot puts the angler there
		if m.deps.Locator != nil {
			if err := m.deps.Locator.Set(models.GPSFix{Lat: spot.Lat, Lon: spot.Lon, Source: geocoding.SourceSpot}); err != nil {
				return missions.StartInput{}, err
			}
			if m.deps.Tracker != nil {
				m.deps.Tracker.Reset()
			}
		}
	}
	return in, nil
}

func (m Model) findSpot(name string) *models.Spot {
	for i := range m.spots {
		if strings.EqualFold(m.spots[i].Name, name) {
			return &m.spots[i]
		}
	}
	return nil
}

func (m Model) spotName(id string) string {
	for _, s := range m.spots {
		if s.ID == id {
			return s.Name
		}
	}
	return environment.NoData
}

func (m Model) handleMissionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "n", "enter":
		return m.openStrikeForm()
	case "e":
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, endMission(m.deps.Missions)
	case "c", "esc":
		m.state = StateConditions
		return m, nil
	case "r":
		return m.refreshConditions()
	case "x":
		return m, exportMission(m.deps.Missions, m.mission.ID, missions.FormatCSV)
	case "j":
		return m, exportMission(m.deps.Missions, m.mission.ID, missions.FormatJSON)
	}
	return m, nil
}

func (m Model) openStrikeForm() (tea.Model, tea.Cmd) {
	m.strikeForm = newForm("Log Strike",
		field{label: "Species", placeholder: "striped bass"},
		field{label: "Size (cm)"},
		field{label: "Weight (g)"},
		field{label: "Lure"},
		field{label: "Released", placeholder: "y/n", value: "y"},
		field{label: "Retrieve"},
		field{label: "Speed"},
		field{label: "Strike depth"},
		field{label: "Strike type"},
		field{label: "Photo", placeholder: "path to a .jpg"},
		field{label: "Notes"},
	)
	m.formErr = nil
	m.state = StateStrikeForm
	return m, textinput.Blink
}

func (m Model) handleStrikeForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case msg.Type == tea.KeyEsc:
		m.state = StateMission
		m.formErr = nil
		return m, nil
	case msg.Type == tea.KeyCtrlS, msg.Type == tea.KeyEnter && m.strikeForm.onLast():
		in, err := m.strikeInput()
		if err != nil {
			m.formErr = err
			return m, nil
		}
		if m.saving {
			return m, nil
		}
		m.saving = true
		return m, tea.Batch(m.spinner.Tick, recordStrike(m.deps.Missions, in))
	case msg.Type == tea.KeyEnter:
		m.strikeForm = m.strikeForm.move(1)
		return m, textinput.Blink
	}

	m.strikeForm, cmd = m.strikeForm.Update(msg)
	return m, cmd
}

func (m Model) strikeInput() (missions.StrikeInput, error) {
	f := m.strikeForm
	size, err := f.float(sfSize)
	if err != nil {
		return missions.StrikeInput{}, err
	}
	weight, err := f.float(sfWeight)
	if err != nil {
		return missions.StrikeInput{}, err
	}
	return missions.StrikeInput{
		Species:  f.value(sfSpecies),
		SizeCm:   size,
		WeightG:  weight,
		Lure:     f.value(sfLure),
		Released: f.yes(sfReleased),
		Dynamics: models.Dynamics{
			RetrieveTechnique: f.value(sfRetrieve),
			RetrieveSpeed:     f.value(sfSpeed),
			StrikeDepth:       f.value(sfDepth),
			StrikeType:        f.value(sfType),
		},
		PhotoPath: f.value(sfPhoto),
		Notes:     f.value(sfNotes),
	}, nil
}

// handleSpotList handles keyboard input in the spot list
func (m Model) handleSpotList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	selected, hasSelection := m.spotList.SelectedItem().(spotItem)

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "c":
		m.state = StateConditions
		return m, nil
	case "a":
		return m.openSpotForm()
	case "d":
		if hasSelection {
			return m, deleteSpot(m.deps.Spots, selected.spot)
		}
		return m, nil
	case "r":
		if hasSelection {
			m.setStatus("Fetching weather for "+selected.spot.Name+"...", nil)
			return m, refreshSpot(m.deps.Spots, selected.spot)
		}
		return m, nil
	case "R":
		m.setStatus("Fetching weather for all spots...", nil)
		return m, refreshAllSpots(m.deps.Spots)
	case "e":
		return m, exportSpots(m.deps.Spots, m.deps.ExportDir)
	case "enter":
		// Move to the spot and read conditions there
		if !hasSelection {
			return m, nil
		}
		sp := selected.spot
		if err := m.deps.Locator.Set(models.GPSFix{Lat: sp.Lat, Lon: sp.Lon, Source: geocoding.SourceSpot}); err != nil {
			m.setStatus("", err)
			return m, nil
		}
		m.state = StateConditions
		m.setStatus("Position set to "+sp.Name, nil)
		return m.moved()
	}

	m.spotList, cmd = m.spotList.Update(msg)
	return m, cmd
}

func (m Model) openSpotForm() (tea.Model, tea.Cmd) {
	lat, lon := "", ""
	if m.snapshot != nil {
		lat = fmt.Sprintf("%.5f", m.snapshot.Fix.Lat)
		lon = fmt.Sprintf("%.5f", m.snapshot.Fix.Lon)
	}
	m.spotForm = newForm("Add Spot",
		field{label: "Name", required: true},
		field{label: "Latitude", required: true, value: lat},
		field{label: "Longitude", required: true, value: lon},
		field{label: "Depth (m)"},
		field{label: "Bottom", placeholder: "sand, rock, mud..."},
	)
	m.formErr = nil
	m.state = StateSpotForm
	return m, textinput.Blink
}

func (m Model) handleSpotForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case msg.Type == tea.KeyEsc:
		m.state = StateSpots
		m.formErr = nil
		return m, nil
	case msg.Type == tea.KeyCtrlS, msg.Type == tea.KeyEnter && m.spotForm.onLast():
		f := m.spotForm
		if label := f.missing(); label != "" {
			m.formErr = fmt.Errorf("%s is required", label)
			return m, nil
		}
		var vals [3]float64
		for i, idx := range []int{pfLat, pfLon, pfDepth} {
			v, err := f.float(idx)
			if err != nil {
				m.formErr = err
				return m, nil
			}
			vals[i] = v
		}
		return m, addSpot(m.deps.Spots, f.value(pfName), vals[0], vals[1], vals[2], f.value(pfBottom))
	case msg.Type == tea.KeyEnter:
		m.spotForm = m.spotForm.move(1)
		return m, textinput.Blink
	}

	m.spotForm, cmd = m.spotForm.Update(msg)
	return m, cmd
}

// handleLogList handles keyboard input in the mission log
func (m Model) handleLogList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.logStrikeFocus {
		return m.handleLogStrikes(msg)
	}

	var cmd tea.Cmd
	selected, hasSelection := m.logList.SelectedItem().(missionItem)

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "c":
		m.state = StateConditions
		return m, nil
	case "enter":
		if hasSelection {
			m.logCursor = 0
			return m, loadStrikes(m.deps.Missions, selected.mission.ID)
		}
		return m, nil
	case "tab":
		if m.logMissionID != "" && len(m.logStrikes) > 0 {
			m.logStrikeFocus = true
		}
		return m, nil
	case "d":
		if !hasSelection {
			return m, nil
		}
		if selected.mission.IsActive() {
			m.setStatus("", missions.ErrMissionActive)
			return m, nil
		}
		return m, deleteMission(m.deps.Missions, selected.mission.ID)
	case "x", "j", "b":
		if !hasSelection {
			return m, nil
		}
		format := map[string]missions.Format{
			"x": missions.FormatCSV,
			"j": missions.FormatJSON,
			"b": missions.FormatBundle,
		}[msg.String()]
		return m, exportMission(m.deps.Missions, selected.mission.ID, format)
	}

	m.logList, cmd = m.logList.Update(msg)
	return m, cmd
}

// handleLogStrikes moves through the shown mission's strikes
func (m Model) handleLogStrikes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "esc":
		m.logStrikeFocus = false
	case "up", "k":
		if m.logCursor > 0 {
			m.logCursor--
		}
	case "down":
		if m.logCursor < len(m.logStrikes)-1 {
			m.logCursor++
		}
	case "d":
		if m.logCursor >= 0 && m.logCursor < len(m.logStrikes) {
			return m, deleteStrike(m.deps.Missions, m.logMissionID, m.logStrikes[m.logCursor].ID)
		}
	}
	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.state {
	case StateConditions:
		body = m.viewConditions()
	case StateLocate:
		body = m.viewLocate()
	case StateMissionForm:
		body = m.viewForm(m.missionForm, "Tab/↑↓: Move • Enter on last field or Ctrl+S: Start • Esc: Cancel")
	case StateMission:
		body = m.viewMission()
	case StateStrikeForm:
		body = m.viewForm(m.strikeForm, "Tab/↑↓: Move • Enter on last field or Ctrl+S: Save • Esc: Cancel")
	case StateSpots:
		body = m.viewSpots()
	case StateSpotForm:
		body = m.viewForm(m.spotForm, "Tab/↑↓: Move • Enter on last field or Ctrl+S: Save • Esc: Cancel")
	case StateLog:
		body = m.viewLog()
	case StateError:
		return m.viewError()
	}

	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		body = lipgloss.JoinVertical(lipgloss.Left, body, style.Render(m.status))
	}
	return body
}

func header() string {
	return titleStyle.Render("🎣 StrikeLog")
}

// viewError renders the error view
func (m Model) viewError() string {
	title := errorStyle.Render("✗ Error")

	errorMsg := "An unknown error occurred"
	if m.err != nil {
		errorMsg = m.err.Error()
	}

	help := helpStyle.Render("Press any key to continue • Ctrl+C: Quit")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", errorMsg, "", help)
}

func (m Model) viewConditions() string {
	sections := []string{
		header(),
		sectionHeaderStyle.Render("CONDITIONS"),
		m.renderConditions(),
	}
	if m.mission != nil {
		sections = append(sections,
			sectionHeaderStyle.Render("MISSION"),
			mutedStyle.Render(fmt.Sprintf("%s · %s · %s", m.mission.Name, m.mission.ElapsedLabel(m.now), plural(len(m.strikes), "strike"))),
		)
	}
	help := "R: Refresh • /: Set position • M: Mission • S: Spots • L: Log • Q: Quit"
	sections = append(sections, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewLocate renders the position search view
func (m Model) viewLocate() string {
	searchBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(64).
		Render(m.searchInput.View())

	sections := []string{header(), mutedStyle.Render("Set your position"), "", searchBox}
	if m.loadingConditions {
		sections = append(sections, "", m.spinner.View()+" Looking up...")
	}
	if m.formErr != nil {
		sections = append(sections, "", errorStyle.Padding(0, 2).Render("✗ "+m.formErr.Error()))
	}
	sections = append(sections, "", helpStyle.Render("Enter: Search • Esc: Back • Ctrl+C: Quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewForm(f form, help string) string {
	sections := []string{header(), f.View()}
	if m.saving {
		sections = append(sections, m.spinner.View()+" Saving...")
	}
	if m.formErr != nil {
		sections = append(sections, errorStyle.Render("✗ "+m.formErr.Error()))
	}
	sections = append(sections, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewMission() string {
	sections := []string{
		header(),
		sectionHeaderStyle.Render("MISSION"),
		m.renderMission(),
	}
	if m.snapshot != nil {
		a := m.snapshot.Assessment
		sections = append(sections,
			sectionHeaderStyle.Render("NOW"),
			fmt.Sprintf("%s %s · %s · score %s",
				m.snapshot.Lunar.Icon(), m.snapshot.Lunar.PhaseName(),
				a.PressureTrend,
				scoreStyle(a.Score).Render(fmt.Sprint(a.Score))),
		)
	}
	help := "N/Enter: Log strike • E: End mission • X: CSV • J: JSON • R: Refresh • C: Conditions • Q: Quit"
	sections = append(sections, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewSpots() string {
	sections := []string{header()}
	if len(m.spots) == 0 {
		sections = append(sections, "", mutedStyle.Render("No saved spots. Press A to add one."))
	} else {
		sections = append(sections, m.spotList.View())
	}
	help := "↑/↓: Navigate • Enter: Go there • A: Add • D: Delete • R: Weather • Shift+R: All • E: Export • Esc: Back"
	sections = append(sections, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewLog() string {
	sections := []string{header(), m.logList.View()}
	if m.logMissionID != "" {
		cursor := -1
		if m.logStrikeFocus {
			cursor = m.logCursor
		}
		sections = append(sections, sectionHeaderStyle.Render("STRIKES"), renderStrikes(m.logStrikes, cursor))
	}
	help := "↑/↓: Navigate • Enter: Strikes • Tab: Select strike • D: Delete • X: CSV • J: JSON • B: Bundle • Esc: Back"
	if m.logStrikeFocus {
		help = "↑/↓: Select strike • D: Delete strike • Tab/Esc: Back to missions"
	}
	sections = append(sections, helpStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
