package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
	"github.com/roadpulse/roadpulse-backend-go/internal/spatial"
)

// SessionService handles driving session lifecycle and trip rollups
type SessionService struct {
	repo *repository.SessionRepository
}

// NewSessionService creates a new session service
func NewSessionService(repo *repository.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

// Create starts a new session for the given (self-declared) user.
func (s *SessionService) Create(userID string) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.SessionStatusStarted,
		StartedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get retrieves a session by id, or nil when absent.
func (s *SessionService) Get(id string) (*models.Session, error) {
	return s.repo.GetByID(id)
}

// List returns recent sessions.
func (s *SessionService) List(limit int) ([]models.Session, error) {
	return s.repo.List(limit)
}

// UpdateStatus transitions a session between started and paused. Completion
// goes through Complete so the rollup is always computed.
func (s *SessionService) UpdateStatus(id, status string) error {
	if status != models.SessionStatusStarted && status != models.SessionStatusPaused {
		return fmt.Errorf("invalid session status: %s", status)
	}
	session, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session not found: %s", id)
	}
	if session.Status == models.SessionStatusCompleted {
		return fmt.Errorf("session already completed: %s", id)
	}
	return s.repo.UpdateStatus(id, status)
}

// AddPoint records one point against an active session.
func (s *SessionService) AddPoint(id string, p *models.SessionPoint) error {
	session, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session not found: %s", id)
	}
	if session.Status == models.SessionStatusCompleted {
		return fmt.Errorf("session already completed: %s", id)
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now().UTC()
	}
	return s.repo.AddPoint(id, p)
}

// Complete finalizes a session: recomputes the rollup from the full recorded
// point stream and persists it.
func (s *SessionService) Complete(id string) (*models.TripRollup, error) {
	session, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	points, err := s.repo.Points(id)
	if err != nil {
		return nil, err
	}

	rollup := Finalize(points)
	rollup.StartedAt = session.StartedAt
	if rollup.EndedAt.IsZero() {
		rollup.EndedAt = time.Now().UTC()
	}

	if err := s.repo.Complete(id, rollup); err != nil {
		return nil, err
	}
	return rollup, nil
}

// Finalize folds an ordered point stream into a trip rollup. Distance is the
// sum of pairwise great-circle distances with no smoothing or outlier
// rejection. Average speed is the mean of positive reported speeds only; a
// trip with no positive speeds yields zero averages, not an error.
func Finalize(points []models.SessionPoint) *models.TripRollup {
	rollup := &models.TripRollup{}
	if len(points) == 0 {
		return rollup
	}

	rollup.StartedAt = points[0].CapturedAt
	rollup.EndedAt = points[len(points)-1].CapturedAt

	for i := 1; i < len(points); i++ {
		rollup.DistanceMeters += spatial.Distance(
			points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude,
		)
	}

	var speedSum float64
	var speedCount int
	for _, p := range points {
		if p.Speed > 0 {
			speedSum += p.Speed
			speedCount++
			if p.Speed > rollup.MaxSpeed {
				rollup.MaxSpeed = p.Speed
			}
		}
	}
	if speedCount > 0 {
		rollup.AvgSpeed = speedSum / float64(speedCount)
	}

	return rollup
}
