package repository

import (
	"database/sql"
	"fmt"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

// SessionRepository handles database operations for driving sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session.
func (r *SessionRepository) Create(s *models.Session) error {
	query := `INSERT INTO sessions (id, user_id, status, started_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, s.ID, s.UserID, s.Status, s.StartedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session, or nil when absent.
func (r *SessionRepository) GetByID(id string) (*models.Session, error) {
	query := `SELECT id, user_id, status, started_at, ended_at, distance_meters, avg_speed, max_speed
		FROM sessions WHERE id = ?`

	var s models.Session
	err := r.db.QueryRow(query, id).Scan(
		&s.ID, &s.UserID, &s.Status, &s.StartedAt, &s.EndedAt,
		&s.DistanceMeters, &s.AvgSpeed, &s.MaxSpeed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// List returns sessions newest first, up to limit.
func (r *SessionRepository) List(limit int) ([]models.Session, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, user_id, status, started_at, ended_at, distance_meters, avg_speed, max_speed
		FROM sessions ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.StartedAt, &s.EndedAt,
			&s.DistanceMeters, &s.AvgSpeed, &s.MaxSpeed); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// UpdateStatus transitions a session's status.
func (r *SessionRepository) UpdateStatus(id, status string) error {
	if _, err := r.db.Exec("UPDATE sessions SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

// Complete marks a session completed and stores its rollup atomically.
func (r *SessionRepository) Complete(id string, rollup *models.TripRollup) error {
	query := `UPDATE sessions
		SET status = ?, ended_at = ?, distance_meters = ?, avg_speed = ?, max_speed = ?
		WHERE id = ?`

	if _, err := r.db.Exec(query,
		models.SessionStatusCompleted, rollup.EndedAt,
		rollup.DistanceMeters, rollup.AvgSpeed, rollup.MaxSpeed, id,
	); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

// AddPoint appends one point to a session's raw stream.
func (r *SessionRepository) AddPoint(sessionID string, p *models.SessionPoint) error {
	query := `INSERT INTO session_points (session_id, latitude, longitude, speed, captured_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.Exec(query, sessionID, p.Latitude, p.Longitude, p.Speed, p.CapturedAt); err != nil {
		return fmt.Errorf("failed to add session point: %w", err)
	}
	return nil
}

// Points returns a session's recorded points in capture order.
func (r *SessionRepository) Points(sessionID string) ([]models.SessionPoint, error) {
	query := `SELECT latitude, longitude, speed, captured_at
		FROM session_points WHERE session_id = ? ORDER BY captured_at, id`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session points: %w", err)
	}
	defer rows.Close()

	var points []models.SessionPoint
	for rows.Next() {
		var p models.SessionPoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Speed, &p.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
