package service

import (
	"database/sql"
	"log"
	"math"
	"sync"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/database"
	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/observability"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
	"github.com/roadpulse/roadpulse-backend-go/internal/spatial"
)

// DefaultMergeBoxDegrees is the half-width of the merge lookup box. ~55 m at
// mid-latitudes, a deliberate degree-space approximation of the 50 m merge
// radius rather than a true geodesic query.
const DefaultMergeBoxDegrees = 0.0005

// AggregationService is the authoritative merge engine for speed bump reports.
// An incoming report either reinforces the nearest existing community record
// inside the merge box or creates a new record; either way a traffic sample is
// appended. All merges run under a single writer so two concurrent reports of
// the same physical bump can never both create a record.
type AggregationService struct {
	mu sync.Mutex

	records *repository.CommunityRepository
	traffic *repository.TrafficRepository
	metrics *observability.Metrics

	boxDegrees float64
}

// NewAggregationService creates the merge engine. boxDegrees <= 0 falls back
// to the default.
func NewAggregationService(records *repository.CommunityRepository, traffic *repository.TrafficRepository, metrics *observability.Metrics, boxDegrees float64) *AggregationService {
	if boxDegrees <= 0 {
		boxDegrees = DefaultMergeBoxDegrees
	}
	return &AggregationService{
		records:    records,
		traffic:    traffic,
		metrics:    metrics,
		boxDegrees: boxDegrees,
	}
}

// Submit merges one report into the community record table. Out-of-range
// payloads are rejected before they can reach the table, whatever transport
// they arrived on.
func (s *AggregationService) Submit(req models.ReportRequest) (*models.MergeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CapturedAt.IsZero() {
		req.CapturedAt = time.Now().UTC()
	}
	if req.DetectionMethod == "" {
		req.DetectionMethod = models.DetectionMethodSensor
	}

	// Single-writer discipline: the find-or-create decision must be atomic
	s.mu.Lock()
	defer s.mu.Unlock()

	var result models.MergeResult
	err := database.Transaction(s.records.DB(), func(tx *sql.Tx) error {
		box := models.BoundingBox{
			MinLat: req.Latitude - s.boxDegrees,
			MaxLat: req.Latitude + s.boxDegrees,
			MinLon: req.Longitude - s.boxDegrees,
			MaxLon: req.Longitude + s.boxDegrees,
		}
		candidates, err := s.records.FindInBox(tx, box)
		if err != nil {
			return err
		}

		if nearest := nearestByDegrees(candidates, req.Latitude, req.Longitude); nearest != nil {
			// Cumulative mean: every historical reinforcement counts equally
			merged := math.Round(
				(nearest.Intensity*float64(nearest.VerifiedCount) + float64(req.Intensity)) /
					float64(nearest.VerifiedCount+1))
			count := nearest.VerifiedCount + 1

			if err := s.records.Reinforce(tx, nearest.ID, merged, count, req.CapturedAt); err != nil {
				return err
			}
			result = models.MergeResult{Created: false, RecordID: nearest.ID, Verifications: count}
		} else {
			rec := models.CommunityRecord{
				Latitude:        spatial.QuantizeCoord(req.Latitude),
				Longitude:       spatial.QuantizeCoord(req.Longitude),
				Intensity:       float64(req.Intensity),
				VerifiedCount:   1,
				LastVerifiedAt:  req.CapturedAt,
				DetectionMethod: req.DetectionMethod,
			}
			id, err := s.records.Insert(tx, &rec)
			if err != nil {
				return err
			}
			result = models.MergeResult{Created: true, RecordID: id, Verifications: 1}
		}

		// Appended regardless of merge outcome; feeds traffic density only
		sample := models.TrafficSample{
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Speed:      0,
			TimeOfDay:  models.TimeOfDay(req.CapturedAt),
			DayOfWeek:  req.CapturedAt.Weekday().String(),
			CapturedAt: req.CapturedAt,
		}
		return s.traffic.Insert(tx, &sample)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReportsSubmitted.WithLabelValues(req.DetectionMethod).Inc()
		if result.Created {
			s.metrics.RecordsCreated.Inc()
		} else {
			s.metrics.RecordsMerged.Inc()
		}
	}

	if result.Created {
		log.Printf("[Aggregator] New record %d at (%.4f, %.4f) intensity %d",
			result.RecordID, req.Latitude, req.Longitude, req.Intensity)
	}

	return &result, nil
}

// nearestByDegrees picks the candidate with minimal Manhattan distance in
// degrees. Not true geodesic nearest; acceptable because the box is small.
// Ties break toward the first (lowest id) candidate.
func nearestByDegrees(candidates []models.CommunityRecord, lat, lon float64) *models.CommunityRecord {
	var nearest *models.CommunityRecord
	best := math.Inf(1)
	for i := range candidates {
		d := math.Abs(candidates[i].Latitude-lat) + math.Abs(candidates[i].Longitude-lon)
		if d < best {
			best = d
			nearest = &candidates[i]
		}
	}
	return nearest
}

// Query returns snapshots of records inside the box. Reads never take the
// merge lock and may trail an in-flight merge by one transaction.
func (s *AggregationService) Query(box models.BoundingBox) ([]models.RecordSnapshot, error) {
	records, err := s.records.FindInBox(s.records.DB(), box)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.RecordSnapshot, 0, len(records))
	for i := range records {
		rec := &records[i]
		snapshots = append(snapshots, models.RecordSnapshot{
			ID:             rec.ID,
			Latitude:       spatial.QuantizeCoord(rec.Latitude),
			Longitude:      spatial.QuantizeCoord(rec.Longitude),
			Intensity:      rec.Intensity,
			VerifiedCount:  rec.VerifiedCount,
			Confidence:     rec.Confidence(),
			LastVerifiedAt: rec.LastVerifiedAt,
		})
	}
	return snapshots, nil
}

// Stats summarizes the community record table.
func (s *AggregationService) Stats() (*models.RecordStats, error) {
	return s.records.Stats()
}

// Reset clears all community records. Serialized with merges.
func (s *AggregationService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.DeleteAll()
}
