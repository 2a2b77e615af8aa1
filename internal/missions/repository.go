package missions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ngmaloney/strike-log/internal/database"
	"github.com/ngmaloney/strike-log/internal/models"
)

var (
	// ErrNotFound is returned when no mission or strike has the requested id.
	ErrNotFound = errors.New("mission not found")

	// ErrNoActiveMission is returned by operations that need a running mission.
	ErrNoActiveMission = errors.New("no active mission")

	// ErrMissionActive is returned when starting a mission while one is running.
	ErrMissionActive = errors.New("a mission is already active")
)

// Repository handles persistence for missions and their strikes
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new mission repository on an open database
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SaveMission inserts or updates a mission. The full record is kept as JSON;
// the indexed columns are for lookups.
func (r *Repository) SaveMission(m *models.Mission) error {
	return saveMission(r.db, m)
}

func saveMission(db execer, m *models.Mission) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding mission: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO missions (id, name, technique, start_time, end_time, spot_id, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			technique = excluded.technique,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			spot_id = excluded.spot_id,
			data = excluded.data
	`,
		m.ID,
		m.Name,
		m.Technique,
		database.Millis(m.StartTime),
		database.NullMillis(m.EndTime),
		sql.NullString{String: m.SpotID, Valid: m.SpotID != ""},
		string(data),
	)
	if err != nil {
		return fmt.Errorf("saving mission: %w", err)
	}
	return nil
}

// GetMission retrieves a mission by id
func (r *Repository) GetMission(id string) (*models.Mission, error) {
	return scanMission(r.db.QueryRow("SELECT data FROM missions WHERE id = ?", id))
}

// ActiveMission returns the most recently started mission that has not ended
func (r *Repository) ActiveMission() (*models.Mission, error) {
	m, err := scanMission(r.db.QueryRow(
		"SELECT data FROM missions WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1"))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoActiveMission
	}
	return m, err
}

// ListMissions retrieves every mission, newest first
func (r *Repository) ListMissions() ([]models.Mission, error) {
	rows, err := r.db.Query("SELECT data FROM missions ORDER BY start_time DESC")
	if err != nil {
		return nil, fmt.Errorf("querying missions: %w", err)
	}
	defer rows.Close()

	var missions []models.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missions: %w", err)
	}
	return missions, nil
}

// DeleteMission removes a mission and, by cascade, its strikes
func (r *Repository) DeleteMission(id string) error {
	res, err := r.db.Exec("DELETE FROM missions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting mission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMission saves a mission and makes strikes its complete strike list,
// all in one transaction
func (r *Repository) ReplaceMission(m *models.Mission, strikes []models.Strike) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveMission(tx, m); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM strikes WHERE mission_id = ?", m.ID); err != nil {
		return fmt.Errorf("clearing strikes: %w", err)
	}
	for i := range strikes {
		if err := saveStrike(tx, &strikes[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mission: %w", err)
	}
	return nil
}

// SaveStrike inserts or updates a strike and its photo
func (r *Repository) SaveStrike(s *models.Strike) error {
	return saveStrike(r.db, s)
}

func saveStrike(db execer, s *models.Strike) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding strike: %w", err)
	}

	var photo any
	if s.HasPhoto() {
		photo = s.Photo
	}

	_, err = db.Exec(`
		INSERT INTO strikes (id, mission_id, timestamp, species, data, photo)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mission_id = excluded.mission_id,
			timestamp = excluded.timestamp,
			species = excluded.species,
			data = excluded.data,
			photo = excluded.photo
	`,
		s.ID,
		s.MissionID,
		database.Millis(s.Timestamp),
		s.Species,
		string(data),
		photo,
	)
	if err != nil {
		return fmt.Errorf("saving strike: %w", err)
	}
	return nil
}

// ListStrikes retrieves a mission's strikes in the order they happened
func (r *Repository) ListStrikes(missionID string) ([]models.Strike, error) {
	rows, err := r.db.Query(
		"SELECT data, photo FROM strikes WHERE mission_id = ? ORDER BY timestamp, id", missionID)
	if err != nil {
		return nil, fmt.Errorf("querying strikes: %w", err)
	}
	defer rows.Close()

	var strikes []models.Strike
	for rows.Next() {
		var (
			data  string
			photo []byte
		)
		if err := rows.Scan(&data, &photo); err != nil {
			return nil, fmt.Errorf("scanning strike: %w", err)
		}
		var s models.Strike
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("decoding strike: %w", err)
		}
		s.Photo = photo
		strikes = append(strikes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating strikes: %w", err)
	}
	return strikes, nil
}

// CountStrikes returns how many strikes a mission has
func (r *Repository) CountStrikes(missionID string) (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM strikes WHERE mission_id = ?", missionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting strikes: %w", err)
	}
	return n, nil
}

// DeleteStrike removes a single strike
func (r *Repository) DeleteStrike(id string) error {
	res, err := r.db.Exec("DELETE FROM strikes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting strike: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMission(row scanner) (*models.Mission, error) {
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning mission: %w", err)
	}
	var m models.Mission
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("decoding mission: %w", err)
	}
	return &m, nil
}
