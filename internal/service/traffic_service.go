package service

import (
	"log"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
	"github.com/roadpulse/roadpulse-backend-go/internal/spatial"
)

// Geohash precision for density cells; 7 characters is ~150 m.
const densityCellPrecision = 7

// TrafficService aggregates raw traffic samples into density cells
type TrafficService struct {
	repo *repository.TrafficRepository
}

// NewTrafficService creates a new traffic service
func NewTrafficService(repo *repository.TrafficRepository) *TrafficService {
	return &TrafficService{repo: repo}
}

// RecordSample appends one standalone speed sample (outside the merge path).
func (s *TrafficService) RecordSample(sample *models.TrafficSample) error {
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now().UTC()
	}
	if sample.TimeOfDay == "" {
		sample.TimeOfDay = models.TimeOfDay(sample.CapturedAt)
	}
	if sample.DayOfWeek == "" {
		sample.DayOfWeek = sample.CapturedAt.Weekday().String()
	}
	return s.repo.Insert(s.repo.DB(), sample)
}

// RollupDensity aggregates samples from the given window into per-cell,
// per-time-of-day density rows. Individual samples are never mutated.
func (s *TrafficService) RollupDensity(window time.Duration) (int, error) {
	samples, err := s.repo.ListSince(time.Now().UTC().Add(-window))
	if err != nil {
		return 0, err
	}

	type bucket struct {
		count    int64
		speedSum float64
	}
	buckets := make(map[[2]string]*bucket)
	for _, sample := range samples {
		key := [2]string{
			spatial.CellID(sample.Latitude, sample.Longitude, densityCellPrecision),
			sample.TimeOfDay,
		}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.speedSum += sample.Speed
	}

	for key, b := range buckets {
		cell := models.TrafficDensityCell{
			CellID:      key[0],
			TimeOfDay:   key[1],
			SampleCount: b.count,
			AvgSpeed:    b.speedSum / float64(b.count),
		}
		if err := s.repo.UpsertDensity(&cell); err != nil {
			return 0, err
		}
	}

	log.Printf("[Traffic] Rolled up %d samples into %d density cells", len(samples), len(buckets))
	return len(buckets), nil
}

// DensityCells returns the current aggregated density view.
func (s *TrafficService) DensityCells() ([]models.TrafficDensityCell, error) {
	return s.repo.DensityCells()
}
