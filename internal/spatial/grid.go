package spatial

import "math"

// Base32 alphabet for geohash encoding
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// QuantizeCoord rounds a coordinate to 4 decimal places (~11 m at mid-latitudes).
// Community records are keyed by quantized coordinates.
func QuantizeCoord(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// CellID encodes latitude and longitude into a geohash string used as the
// aggregation key for traffic density cells.
// precision: number of characters (1-12); 7 is ~150 m cells.
func CellID(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := []float64{-90.0, 90.0}
	lonRange := []float64{-180.0, 180.0}

	geohash := make([]byte, 0, precision)
	bits := 0
	ch := 0
	evenBit := true

	for len(geohash) < precision {
		if evenBit {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= 1 << (4 - bits)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit

		bits++
		if bits == 5 {
			geohash = append(geohash, base32[ch])
			bits = 0
			ch = 0
		}
	}

	return string(geohash)
}
