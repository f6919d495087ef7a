package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so merge-critical reads and
// writes can run inside the aggregation transaction.
type DBTX interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CommunityRepository handles database operations for community records
type CommunityRepository struct {
	db *sql.DB
}

// NewCommunityRepository creates a new community record repository
func NewCommunityRepository(db *sql.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// DB exposes the underlying handle for transaction management.
func (r *CommunityRepository) DB() *sql.DB {
	return r.db
}

const recordColumns = `id, latitude, longitude, intensity, verified_count, last_verified_at, detection_method, created_at`

// FindInBox returns all records whose coordinates fall inside the given
// degree-space box, ordered by id for a stable tie-break.
func (r *CommunityRepository) FindInBox(q DBTX, box models.BoundingBox) ([]models.CommunityRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM community_records
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY id`

	rows, err := q.Query(query, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query community records: %w", err)
	}
	defer rows.Close()

	var records []models.CommunityRecord
	for rows.Next() {
		var rec models.CommunityRecord
		if err := rows.Scan(
			&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Intensity,
			&rec.VerifiedCount, &rec.LastVerifiedAt, &rec.DetectionMethod, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan community record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Insert creates a new community record and returns its id.
func (r *CommunityRepository) Insert(q DBTX, rec *models.CommunityRecord) (int64, error) {
	query := `INSERT INTO community_records
		(latitude, longitude, intensity, verified_count, last_verified_at, detection_method)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := q.Exec(query,
		rec.Latitude, rec.Longitude, rec.Intensity,
		rec.VerifiedCount, rec.LastVerifiedAt, rec.DetectionMethod,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert community record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted record id: %w", err)
	}
	return id, nil
}

// Reinforce applies a merge update to an existing record.
func (r *CommunityRepository) Reinforce(q DBTX, id int64, intensity float64, verifiedCount int, lastVerifiedAt time.Time) error {
	query := `UPDATE community_records
		SET intensity = ?, verified_count = ?, last_verified_at = ?
		WHERE id = ?`

	if _, err := q.Exec(query, intensity, verifiedCount, lastVerifiedAt, id); err != nil {
		return fmt.Errorf("failed to reinforce community record %d: %w", id, err)
	}
	return nil
}

// GetByID retrieves a single community record, or nil when absent.
func (r *CommunityRepository) GetByID(id int64) (*models.CommunityRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM community_records WHERE id = ?`

	var rec models.CommunityRecord
	err := r.db.QueryRow(query, id).Scan(
		&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Intensity,
		&rec.VerifiedCount, &rec.LastVerifiedAt, &rec.DetectionMethod, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community record: %w", err)
	}
	return &rec, nil
}

// All returns every community record, newest verification first.
func (r *CommunityRepository) All() ([]models.CommunityRecord, error) {
	return r.FindInBox(r.db, models.BoundingBox{
		MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180,
	})
}

// Stats summarizes the community record table.
func (r *CommunityRepository) Stats() (*models.RecordStats, error) {
	query := `SELECT COUNT(*), COALESCE(AVG(intensity), 0), COALESCE(MAX(verified_count), 0)
		FROM community_records`

	var stats models.RecordStats
	if err := r.db.QueryRow(query).Scan(&stats.Total, &stats.AvgIntensity, &stats.MaxVerified); err != nil {
		return nil, fmt.Errorf("failed to query record stats: %w", err)
	}
	return &stats, nil
}

// DeleteAll clears the community record table (explicit data reset).
func (r *CommunityRepository) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM community_records"); err != nil {
		return fmt.Errorf("failed to delete community records: %w", err)
	}
	return nil
}
