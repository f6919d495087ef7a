package models

import "time"

// MotionSample is one raw 3-axis accelerometer reading. Ephemeral, never persisted.
type MotionSample struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Baseline is the device's resting acceleration vector (roughly gravity),
// established by averaging an initial run of samples during calibration.
type Baseline struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Position is a point-in-time location fix from the position provider.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed,omitempty"`    // m/s, negative means unknown
	Accuracy  float64   `json:"accuracy,omitempty"` // meters
	Timestamp time.Time `json:"timestamp"`
}

// CandidateEvent is a locally detected, not-yet-confirmed road anomaly.
// Immutable once created; consumed exactly once by the submission channel.
type CandidateEvent struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Intensity  int       `json:"intensity"`  // 0-10
	Confidence int       `json:"confidence"` // 0-100
	CapturedAt time.Time `json:"capturedAt"`
}
