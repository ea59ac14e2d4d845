package spatialmath

import "math"

// WrapTo2Pi returns a given angle in the [0, 2pi) range.
func WrapTo2Pi(theta float64) float64 {
	return theta - 2*math.Pi*math.Floor(theta/(2*math.Pi))
}

// NormalizeAngle returns a given angle in the (-pi, pi] range.
func NormalizeAngle(theta float64) float64 {
	wrapped := WrapTo2Pi(theta)
	if wrapped > math.Pi {
		return wrapped - 2*math.Pi
	}
	return wrapped
}

// ShortestAngularDistance returns the signed smallest rotation that takes the from
// angle to the to angle.
func ShortestAngularDistance(from, to float64) float64 {
	return NormalizeAngle(to - from)
}
