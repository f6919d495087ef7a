package models

import "time"

// Session status constants
const (
	SessionStatusStarted   = "started"
	SessionStatusPaused    = "paused"
	SessionStatusCompleted = "completed"
)

// Session is one tracked driving session.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId,omitempty" db:"user_id"`
	Status    string    `json:"status" db:"status"`
	StartedAt time.Time `json:"startedAt" db:"started_at"`
	EndedAt   *time.Time `json:"endedAt,omitempty" db:"ended_at"`

	// Filled on completion from the recorded point stream
	DistanceMeters float64 `json:"distanceMeters" db:"distance_meters"`
	AvgSpeed       float64 `json:"avgSpeed" db:"avg_speed"`
	MaxSpeed       float64 `json:"maxSpeed" db:"max_speed"`
}

// SessionPoint is one recorded point of a session's raw stream.
type SessionPoint struct {
	Latitude   float64   `json:"latitude" binding:"min=-90,max=90"`
	Longitude  float64   `json:"longitude" binding:"min=-180,max=180"`
	Speed      float64   `json:"speed"`
	CapturedAt time.Time `json:"capturedAt"`
}

// TripRollup is the derived summary of one completed trip. Recomputed from the
// full point list at completion time, never partially updated.
type TripRollup struct {
	DistanceMeters float64   `json:"distanceMeters"`
	AvgSpeed       float64   `json:"avgSpeed"`
	MaxSpeed       float64   `json:"maxSpeed"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt"`
}
