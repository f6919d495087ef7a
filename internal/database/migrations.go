package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration is one versioned schema step. SQL is inlined so the binary is
// self-contained; versions must be appended, never reordered.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_community_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS community_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				intensity REAL NOT NULL,
				verified_count INTEGER NOT NULL DEFAULT 1,
				last_verified_at TIMESTAMP NOT NULL,
				detection_method TEXT NOT NULL DEFAULT 'sensor',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_community_records_lat_lon
				ON community_records(latitude, longitude);
		`,
	},
	{
		Version: 2,
		Name:    "create_traffic_samples",
		SQL: `
			CREATE TABLE IF NOT EXISTS traffic_samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				speed REAL NOT NULL DEFAULT 0,
				time_of_day TEXT NOT NULL,
				day_of_week TEXT NOT NULL,
				captured_at TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_traffic_samples_captured_at
				ON traffic_samples(captured_at);
		`,
	},
	{
		Version: 3,
		Name:    "create_sessions",
		SQL: `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'started',
				started_at TIMESTAMP NOT NULL,
				ended_at TIMESTAMP,
				distance_meters REAL NOT NULL DEFAULT 0,
				avg_speed REAL NOT NULL DEFAULT 0,
				max_speed REAL NOT NULL DEFAULT 0
			);
			CREATE TABLE IF NOT EXISTS session_points (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				speed REAL NOT NULL DEFAULT 0,
				captured_at TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_session_points_session
				ON session_points(session_id, captured_at);
		`,
	},
	{
		Version: 4,
		Name:    "create_traffic_density",
		SQL: `
			CREATE TABLE IF NOT EXISTS traffic_density (
				cell_id TEXT NOT NULL,
				time_of_day TEXT NOT NULL,
				sample_count INTEGER NOT NULL DEFAULT 0,
				avg_speed REAL NOT NULL DEFAULT 0,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (cell_id, time_of_day)
			);
		`,
	},
}

// Migrate applies all pending migrations against the given database.
func Migrate(d *sql.DB) error {
	if err := initMigrationsTable(d); err != nil {
		return err
	}

	applied, err := appliedMigrations(d)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(d, m); err != nil {
			return err
		}
	}

	return nil
}

func initMigrationsTable(d *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := d.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(d *sql.DB) (map[int]bool, error) {
	rows, err := d.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func applyMigration(d *sql.DB, m Migration) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(m.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}

	log.Printf("Applied migration %d: %s", m.Version, m.Name)
	return nil
}
