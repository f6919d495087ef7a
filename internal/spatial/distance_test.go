package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", 37.775, -122.4194, 37.775, -122.4194, 0, 0.001},
		{"one millidegree of longitude at equator", 0, 0, 0, 0.001, 111.19, 0.5},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 100},
		{"sf to la", 37.7749, -122.4194, 34.0522, -118.2437, 559120, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	d1 := Distance(37.775, -122.4194, 37.776, -122.4204)
	d2 := Distance(37.776, -122.4204, 37.775, -122.4194)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestBearingCardinalDirections(t *testing.T) {
	assert.InDelta(t, 0, Bearing(0, 0, 1, 0), 0.01)    // north
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 0.01)   // east
	assert.InDelta(t, 180, Bearing(1, 0, 0, 0), 0.01)  // south
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 0.01)  // west
}

func TestDestinationPointRoundTrip(t *testing.T) {
	lat, lon := DestinationPoint(37.775, -122.4194, 45, 1000)
	d := Distance(37.775, -122.4194, lat, lon)
	assert.InDelta(t, 1000, d, 1.0)
}

func TestQuantizeCoord(t *testing.T) {
	assert.InDelta(t, 37.7750, QuantizeCoord(37.77504), 1e-9)
	assert.InDelta(t, 37.7751, QuantizeCoord(37.77506), 1e-9)
	assert.InDelta(t, -122.4194, QuantizeCoord(-122.41941), 1e-9)
	assert.InDelta(t, 0.0, QuantizeCoord(0.00004), 1e-9)
}

func TestCellIDStableWithinCell(t *testing.T) {
	a := CellID(37.77501, -122.41941, 7)
	b := CellID(37.77502, -122.41942, 7)
	assert.Equal(t, a, b)
	assert.Len(t, a, 7)

	far := CellID(40.0, -74.0, 7)
	assert.NotEqual(t, a, far)
}
