package models

import (
	"fmt"
	"time"
)

// Detection method constants
const (
	DetectionMethodSensor = "sensor"
	DetectionMethodManual = "manual"
)

// CommunityRecord is the server's merged, persistent belief about one physical
// anomaly location. Coordinates are quantized to ~11 m for lookup; intensity is
// a running weighted mean over all reinforcing reports.
type CommunityRecord struct {
	ID              int64     `json:"id" db:"id"`
	Latitude        float64   `json:"latitude" db:"latitude"`
	Longitude       float64   `json:"longitude" db:"longitude"`
	Intensity       float64   `json:"intensity" db:"intensity"`
	VerifiedCount   int       `json:"verifiedCount" db:"verified_count"`
	LastVerifiedAt  time.Time `json:"lastVerifiedAt" db:"last_verified_at"`
	DetectionMethod string    `json:"detectionMethod" db:"detection_method"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// Confidence derives a 0-100 confidence score from the verification count.
func (r *CommunityRecord) Confidence() int {
	c := r.VerifiedCount * 10
	if c > 100 {
		c = 100
	}
	return c
}

// RecordSnapshot is the read-side view of a community record: quantized
// coordinates and a derived confidence, safe to hand to any client.
type RecordSnapshot struct {
	ID             int64     `json:"id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Intensity      float64   `json:"intensity"`
	VerifiedCount  int       `json:"verifiedCount"`
	Confidence     int       `json:"confidence"`
	LastVerifiedAt time.Time `json:"lastVerifiedAt"`
}

// MergeResult is the outcome of submitting one report to the aggregation engine.
type MergeResult struct {
	Created       bool  `json:"created"`
	RecordID      int64 `json:"recordId"`
	Verifications int   `json:"verifications"`
}

// BoundingBox is a degree-space query window.
type BoundingBox struct {
	MinLat float64 `form:"minLat" json:"minLat"`
	MaxLat float64 `form:"maxLat" json:"maxLat"`
	MinLon float64 `form:"minLon" json:"minLon"`
	MaxLon float64 `form:"maxLon" json:"maxLon"`
}

// RecordStats summarizes the community record table.
type RecordStats struct {
	Total        int64   `json:"total"`
	AvgIntensity float64 `json:"avgIntensity"`
	MaxVerified  int     `json:"maxVerified"`
}

// ReportRequest is the submission payload carried over HTTP or websocket.
type ReportRequest struct {
	Latitude        float64   `json:"latitude" binding:"min=-90,max=90"`
	Longitude       float64   `json:"longitude" binding:"min=-180,max=180"`
	Intensity       int       `json:"intensity" binding:"min=0,max=10"`
	CapturedAt      time.Time `json:"capturedAt"`
	DetectionMethod string    `json:"detectionMethod"`
	Contributor     string    `json:"contributor"`
}

// Validate enforces the payload bounds on every transport. The HTTP binding
// tags above cover the same ranges; websocket submissions only pass through
// here.
func (r *ReportRequest) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", r.Longitude)
	}
	if r.Intensity < 0 || r.Intensity > 10 {
		return fmt.Errorf("intensity out of range: %d", r.Intensity)
	}
	if r.DetectionMethod != "" &&
		r.DetectionMethod != DetectionMethodSensor &&
		r.DetectionMethod != DetectionMethodManual {
		return fmt.Errorf("unknown detection method: %s", r.DetectionMethod)
	}
	return nil
}
