// Package spatialmath defines the planar geometry types used by the planner.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Pose2D is a position and heading in a planar frame. X and Y are in meters,
// Theta is in radians.
type Pose2D struct {
	X     float64
	Y     float64
	Theta float64
}

// NewPose2D creates a pose from coordinates and a heading.
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: theta}
}

// Point returns the position of the pose as a vector in the plane.
func (p Pose2D) Point() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y}
}

// DistanceTo returns the euclidean distance between the positions of two poses.
func (p Pose2D) DistanceTo(other Pose2D) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// HeadingTo returns the absolute angle of the ray from this pose's position to the
// other pose's position.
func (p Pose2D) HeadingTo(other Pose2D) float64 {
	return math.Atan2(other.Y-p.Y, other.X-p.X)
}

// Projected returns a copy of the pose translated dist meters along the absolute
// angle. The heading is unchanged.
func (p Pose2D) Projected(angle, dist float64) Pose2D {
	return Pose2D{
		X:     p.X + dist*math.Cos(angle),
		Y:     p.Y + dist*math.Sin(angle),
		Theta: p.Theta,
	}
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f; %.3f)", p.X, p.Y, p.Theta)
}
