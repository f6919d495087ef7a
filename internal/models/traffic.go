package models

import "time"

// TrafficSample is one append-only speed/location observation. Rollups
// aggregate samples but never mutate them.
type TrafficSample struct {
	ID         int64     `json:"id" db:"id"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	Speed      float64   `json:"speed" db:"speed"`
	TimeOfDay  string    `json:"timeOfDay" db:"time_of_day"`   // morning, afternoon, evening, night
	DayOfWeek  string    `json:"dayOfWeek" db:"day_of_week"`   // Monday..Sunday
	CapturedAt time.Time `json:"capturedAt" db:"captured_at"`
}

// TimeOfDay buckets a clock hour the way the mobile clients do.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}

// TrafficDensityCell is one aggregated cell produced by the rollup job.
type TrafficDensityCell struct {
	CellID      string  `json:"cellId" db:"cell_id"`
	TimeOfDay   string  `json:"timeOfDay" db:"time_of_day"`
	SampleCount int64   `json:"sampleCount" db:"sample_count"`
	AvgSpeed    float64 `json:"avgSpeed" db:"avg_speed"`
}
