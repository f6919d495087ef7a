package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
)

func TestRollupDensityGroupsByCellAndTimeOfDay(t *testing.T) {
	repo := repository.NewTrafficRepository(newTestDB(t))
	svc := NewTrafficService(repo)

	morning := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	// Two morning samples in the same cell, one evening sample, and one in a
	// distant cell.
	require.NoError(t, svc.RecordSample(&models.TrafficSample{Latitude: 37.7750, Longitude: -122.4194, Speed: 10, CapturedAt: morning}))
	require.NoError(t, svc.RecordSample(&models.TrafficSample{Latitude: 37.7750, Longitude: -122.4194, Speed: 20, CapturedAt: morning.Add(time.Minute)}))
	require.NoError(t, svc.RecordSample(&models.TrafficSample{Latitude: 37.7750, Longitude: -122.4194, Speed: 30, CapturedAt: evening}))
	require.NoError(t, svc.RecordSample(&models.TrafficSample{Latitude: 40.0, Longitude: -74.0, Speed: 25, CapturedAt: morning}))

	cells, err := svc.RollupDensity(24 * 365 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, cells)

	stored, err := svc.DensityCells()
	require.NoError(t, err)
	require.Len(t, stored, 3)

	byKey := make(map[string]models.TrafficDensityCell)
	for _, c := range stored {
		byKey[c.CellID+"/"+c.TimeOfDay] = c
	}
	for key, c := range byKey {
		switch {
		case c.SampleCount == 2:
			assert.InDelta(t, 15.0, c.AvgSpeed, 1e-9, key)
			assert.Equal(t, "morning", c.TimeOfDay)
		case c.TimeOfDay == "evening":
			assert.EqualValues(t, 1, c.SampleCount)
			assert.InDelta(t, 30.0, c.AvgSpeed, 1e-9)
		}
	}
}

func TestRecordSampleFillsDerivedFields(t *testing.T) {
	repo := repository.NewTrafficRepository(newTestDB(t))
	svc := NewTrafficService(repo)

	require.NoError(t, svc.RecordSample(&models.TrafficSample{
		Latitude: 1, Longitude: 2, Speed: 5,
		CapturedAt: time.Date(2026, 6, 3, 22, 0, 0, 0, time.UTC), // Wednesday night
	}))

	samples, err := repo.ListSince(time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "night", samples[0].TimeOfDay)
	assert.Equal(t, "Wednesday", samples[0].DayOfWeek)
}
