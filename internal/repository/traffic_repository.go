package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

// TrafficRepository handles database operations for traffic samples
type TrafficRepository struct {
	db *sql.DB
}

// NewTrafficRepository creates a new traffic sample repository
func NewTrafficRepository(db *sql.DB) *TrafficRepository {
	return &TrafficRepository{db: db}
}

// DB exposes the underlying handle for callers running outside a transaction.
func (r *TrafficRepository) DB() *sql.DB {
	return r.db
}

// Insert appends one traffic sample. Samples are append-only.
func (r *TrafficRepository) Insert(q DBTX, s *models.TrafficSample) error {
	query := `INSERT INTO traffic_samples
		(latitude, longitude, speed, time_of_day, day_of_week, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := q.Exec(query,
		s.Latitude, s.Longitude, s.Speed, s.TimeOfDay, s.DayOfWeek, s.CapturedAt,
	); err != nil {
		return fmt.Errorf("failed to insert traffic sample: %w", err)
	}
	return nil
}

// ListSince returns samples captured at or after the given time.
func (r *TrafficRepository) ListSince(since time.Time) ([]models.TrafficSample, error) {
	query := `SELECT id, latitude, longitude, speed, time_of_day, day_of_week, captured_at
		FROM traffic_samples
		WHERE captured_at >= ?
		ORDER BY captured_at`

	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic samples: %w", err)
	}
	defer rows.Close()

	var samples []models.TrafficSample
	for rows.Next() {
		var s models.TrafficSample
		if err := rows.Scan(&s.ID, &s.Latitude, &s.Longitude, &s.Speed,
			&s.TimeOfDay, &s.DayOfWeek, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan traffic sample: %w", err)
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// Count returns the total number of stored samples.
func (r *TrafficRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM traffic_samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count traffic samples: %w", err)
	}
	return n, nil
}

// UpsertDensity writes one aggregated density cell, replacing any previous
// rollup for the same cell and time-of-day bucket.
func (r *TrafficRepository) UpsertDensity(c *models.TrafficDensityCell) error {
	query := `INSERT INTO traffic_density (cell_id, time_of_day, sample_count, avg_speed, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cell_id, time_of_day) DO UPDATE SET
			sample_count = excluded.sample_count,
			avg_speed = excluded.avg_speed,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.Exec(query, c.CellID, c.TimeOfDay, c.SampleCount, c.AvgSpeed); err != nil {
		return fmt.Errorf("failed to upsert traffic density cell: %w", err)
	}
	return nil
}

// DensityCells returns all aggregated density cells.
func (r *TrafficRepository) DensityCells() ([]models.TrafficDensityCell, error) {
	query := `SELECT cell_id, time_of_day, sample_count, avg_speed
		FROM traffic_density ORDER BY cell_id, time_of_day`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic density: %w", err)
	}
	defer rows.Close()

	var cells []models.TrafficDensityCell
	for rows.Next() {
		var c models.TrafficDensityCell
		if err := rows.Scan(&c.CellID, &c.TimeOfDay, &c.SampleCount, &c.AvgSpeed); err != nil {
			return nil, fmt.Errorf("failed to scan traffic density cell: %w", err)
		}
		cells = append(cells, c)
	}

	return cells, rows.Err()
}
