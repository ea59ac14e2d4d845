package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Velocity2D is a body-frame velocity. X and Y are in m/s, Theta is in rad/s.
type Velocity2D struct {
	X     float64
	Y     float64
	Theta float64
}

// NewVelocity2D creates a velocity from per-axis components.
func NewVelocity2D(x, y, theta float64) Velocity2D {
	return Velocity2D{X: x, Y: y, Theta: theta}
}

// TranslationSpeed returns the magnitude of the translational component.
func (v Velocity2D) TranslationSpeed() float64 {
	return math.Hypot(v.X, v.Y)
}

// Linear returns the translational component as a vector in the plane.
func (v Velocity2D) Linear() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y}
}

// Angular returns the rotational component as a vector about the Z axis.
func (v Velocity2D) Angular() r3.Vector {
	return r3.Vector{Z: v.Theta}
}

// IsStopped reports whether every axis is within the given stopped thresholds.
func (v Velocity2D) IsStopped(transThreshold, rotThreshold float64) bool {
	return math.Abs(v.X) <= transThreshold &&
		math.Abs(v.Y) <= transThreshold &&
		math.Abs(v.Theta) <= rotThreshold
}

func (v Velocity2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f; %.3f)", v.X, v.Y, v.Theta)
}
