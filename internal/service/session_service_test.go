package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
)

func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()
	return NewSessionService(repository.NewSessionRepository(newTestDB(t)))
}

func TestFinalizeDistanceAndSpeeds(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	points := []models.SessionPoint{
		{Latitude: 0, Longitude: 0, Speed: 10, CapturedAt: t0},
		{Latitude: 0, Longitude: 0.001, Speed: 20, CapturedAt: t0.Add(10 * time.Second)},
	}

	rollup := Finalize(points)
	assert.InDelta(t, 111.0, rollup.DistanceMeters, 1.0) // 0.001 deg of longitude at the equator
	assert.InDelta(t, 15.0, rollup.AvgSpeed, 1e-9)
	assert.InDelta(t, 20.0, rollup.MaxSpeed, 1e-9)
	assert.Equal(t, t0, rollup.StartedAt)
	assert.Equal(t, t0.Add(10*time.Second), rollup.EndedAt)
}

func TestFinalizeExcludesNonPositiveSpeeds(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	points := []models.SessionPoint{
		{Latitude: 0, Longitude: 0, Speed: 0, CapturedAt: t0},
		{Latitude: 0, Longitude: 0.001, Speed: -1, CapturedAt: t0.Add(time.Second)},
		{Latitude: 0, Longitude: 0.002, Speed: 12, CapturedAt: t0.Add(2 * time.Second)},
	}

	rollup := Finalize(points)
	// Zero/negative speeds are excluded from the mean, not treated as zero
	assert.InDelta(t, 12.0, rollup.AvgSpeed, 1e-9)
	assert.InDelta(t, 12.0, rollup.MaxSpeed, 1e-9)
}

func TestFinalizeNoPositiveSpeedsYieldsZeros(t *testing.T) {
	points := []models.SessionPoint{
		{Latitude: 0, Longitude: 0, Speed: 0, CapturedAt: time.Now()},
		{Latitude: 0, Longitude: 0.001, Speed: 0, CapturedAt: time.Now()},
	}

	rollup := Finalize(points)
	assert.Zero(t, rollup.AvgSpeed)
	assert.Zero(t, rollup.MaxSpeed)
	assert.Greater(t, rollup.DistanceMeters, 100.0)
}

func TestFinalizeEmpty(t *testing.T) {
	rollup := Finalize(nil)
	assert.Zero(t, rollup.DistanceMeters)
	assert.Zero(t, rollup.AvgSpeed)
	assert.Zero(t, rollup.MaxSpeed)
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestSessionService(t)

	session, err := svc.Create("rider-1")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionStatusStarted, session.Status)

	require.NoError(t, svc.UpdateStatus(session.ID, models.SessionStatusPaused))
	require.NoError(t, svc.UpdateStatus(session.ID, models.SessionStatusStarted))
	assert.Error(t, svc.UpdateStatus(session.ID, "warp"))

	t0 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AddPoint(session.ID, &models.SessionPoint{Latitude: 0, Longitude: 0, Speed: 10, CapturedAt: t0}))
	require.NoError(t, svc.AddPoint(session.ID, &models.SessionPoint{Latitude: 0, Longitude: 0.001, Speed: 20, CapturedAt: t0.Add(10 * time.Second)}))

	rollup, err := svc.Complete(session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 111.0, rollup.DistanceMeters, 1.0)
	assert.InDelta(t, 15.0, rollup.AvgSpeed, 1e-9)

	got, err := svc.Get(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	assert.InDelta(t, 15.0, got.AvgSpeed, 1e-9)
	require.NotNil(t, got.EndedAt)

	// Completed sessions accept no further points or transitions
	assert.Error(t, svc.AddPoint(session.ID, &models.SessionPoint{Latitude: 1, Longitude: 1}))
	assert.Error(t, svc.UpdateStatus(session.ID, models.SessionStatusPaused))
}

func TestSessionNotFound(t *testing.T) {
	svc := newTestSessionService(t)

	got, err := svc.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.Complete("missing")
	assert.Error(t, err)
}
