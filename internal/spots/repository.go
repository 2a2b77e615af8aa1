package spots

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ngmaloney/strike-log/internal/database"
	"github.com/ngmaloney/strike-log/internal/models"
)

// ErrNotFound is returned when no spot has the requested id or name.
var ErrNotFound = errors.New("spot not found")

// Repository handles persistence for saved spots
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new spot repository on an open database
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const upsertSpot = `
	INSERT INTO spots (id, name, latitude, longitude, depth, bottom_type, weather, last_update)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		latitude = excluded.latitude,
		longitude = excluded.longitude,
		depth = excluded.depth,
		bottom_type = excluded.bottom_type,
		weather = excluded.weather,
		last_update = excluded.last_update
`

// Save inserts or updates a spot by id
func (r *Repository) Save(spot *models.Spot) error {
	return saveSpot(r.db, spot)
}

func saveSpot(db execer, spot *models.Spot) error {
	weather, err := encodeWeather(spot.Weather)
	if err != nil {
		return err
	}

	_, err = db.Exec(upsertSpot,
		spot.ID,
		spot.Name,
		spot.Lat,
		spot.Lon,
		spot.DepthM,
		nullString(spot.BottomType),
		weather,
		database.NullMillis(spot.LastUpdate),
	)
	if err != nil {
		return fmt.Errorf("saving spot %q: %w", spot.Name, err)
	}
	return nil
}

const selectSpot = `SELECT id, name, latitude, longitude, depth, bottom_type, weather, last_update FROM spots`

// List retrieves all saved spots ordered by name
func (r *Repository) List() ([]models.Spot, error) {
	rows, err := r.db.Query(selectSpot + " ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("querying spots: %w", err)
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spots: %w", err)
	}
	return spots, nil
}

// Get retrieves a spot by id
func (r *Repository) Get(id string) (*models.Spot, error) {
	return scanSpot(r.db.QueryRow(selectSpot+" WHERE id = ?", id))
}

// GetByName retrieves a spot by its unique name
func (r *Repository) GetByName(name string) (*models.Spot, error) {
	return scanSpot(r.db.QueryRow(selectSpot+" WHERE name = ?", name))
}

// Delete removes a spot by id
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM spots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting spot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWeather stores the latest observation for a spot
func (r *Repository) UpdateWeather(id string, obs *models.WeatherObservation, at time.Time) error {
	weather, err := encodeWeather(obs)
	if err != nil {
		return err
	}
	res, err := r.db.Exec("UPDATE spots SET weather = ?, last_update = ? WHERE id = ?",
		weather, database.Millis(at), id)
	if err != nil {
		return fmt.Errorf("updating spot weather: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAll deletes every spot and inserts spots in one transaction
func (r *Repository) ReplaceAll(spots []models.Spot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM spots"); err != nil {
		return fmt.Errorf("clearing spots: %w", err)
	}
	for i := range spots {
		if err := saveSpot(tx, &spots[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing spots: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpot(row scanner) (*models.Spot, error) {
	var (
		s          models.Spot
		bottom     sql.NullString
		weather    sql.NullString
		lastUpdate sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.DepthM, &bottom, &weather, &lastUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning spot: %w", err)
	}

	s.BottomType = bottom.String
	s.LastUpdate = database.TimePtr(lastUpdate)
	if weather.Valid && weather.String != "" {
		var obs models.WeatherObservation
		if err := json.Unmarshal([]byte(weather.String), &obs); err != nil {
			return nil, fmt.Errorf("decoding weather for spot %q: %w", s.Name, err)
		}
		s.Weather = &obs
	}
	return &s, nil
}

func encodeWeather(obs *models.WeatherObservation) (sql.NullString, error) {
	if obs == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding weather: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
