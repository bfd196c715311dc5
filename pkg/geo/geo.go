package geo

import "math"

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pixel represents a position on the frame canvas. Y grows downward.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	const R = 6371000 // Earth radius in meters
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// PixelDistance returns the Euclidean distance between two canvas positions.
func PixelDistance(a, b Pixel) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AngleTo returns the angle of the vector from a to b in radians,
// measured from the positive X axis (canvas convention, Y down).
func AngleTo(a, b Pixel) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// WrapAngle normalizes an angle difference in radians to [-pi, pi].
func WrapAngle(rad float64) float64 {
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad < -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

// FeetToMeters converts a height configured in feet to meters.
// The configuration surface is imperial, everything geometric is metric.
func FeetToMeters(ft float64) float64 {
	return ft * 0.3048
}
