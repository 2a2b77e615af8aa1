package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBPath returns the path to the StrikeLog database inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "strikelog.db")
}

// Open opens (creating if needed) the database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// foreign_keys is per connection, so it goes in the DSN.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: the TUI's commands run concurrently and sqlite has a
	// single writer.
	db.SetMaxOpenConns(1)

	// Set pragmas for performance
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the spots, missions and strikes tables. It is safe to
// call on an existing database.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			depth REAL NOT NULL DEFAULT 0,
			bottom_type TEXT,
			weather TEXT,
			last_update INTEGER
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_spots_name ON spots(name);

		CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			technique TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			spot_id TEXT,
			data TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_missions_end_time ON missions(end_time);

		CREATE TABLE IF NOT EXISTS strikes (
			id TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
			timestamp INTEGER NOT NULL,
			species TEXT,
			data TEXT NOT NULL,
			photo BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_strikes_mission ON strikes(mission_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Millis converts t to the integer form stored in time columns.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis. Times come back in UTC.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NullMillis stores an optional time.
func NullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// TimePtr reads an optional time.
func TimePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromMillis(n.Int64)
	return &t
}
