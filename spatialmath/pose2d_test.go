package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPose2D(t *testing.T) {
	p := NewPose2D(1, 2, math.Pi/2)
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2})

	q := NewPose2D(4, 6, 0)
	test.That(t, p.DistanceTo(q), test.ShouldAlmostEqual, 5)
	test.That(t, q.DistanceTo(p), test.ShouldAlmostEqual, 5)
	test.That(t, p.DistanceTo(p), test.ShouldEqual, 0)

	test.That(t, NewPose2D(0, 0, 0).HeadingTo(NewPose2D(0, 3, 0)), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, NewPose2D(0, 0, 0).HeadingTo(NewPose2D(-2, 0, 0)), test.ShouldAlmostEqual, math.Pi)
}

func TestPose2DProjected(t *testing.T) {
	p := NewPose2D(1, 1, 0.3)

	fwd := p.Projected(0, 2)
	test.That(t, fwd.X, test.ShouldAlmostEqual, 3)
	test.That(t, fwd.Y, test.ShouldAlmostEqual, 1)
	test.That(t, fwd.Theta, test.ShouldEqual, 0.3)

	up := p.Projected(math.Pi/2, 1.5)
	test.That(t, up.X, test.ShouldAlmostEqual, 1)
	test.That(t, up.Y, test.ShouldAlmostEqual, 2.5)
}

func TestVelocity2D(t *testing.T) {
	v := NewVelocity2D(3, 4, 1)
	test.That(t, v.TranslationSpeed(), test.ShouldAlmostEqual, 5)
	test.That(t, v.Linear(), test.ShouldResemble, r3.Vector{X: 3, Y: 4})
	test.That(t, v.Angular(), test.ShouldResemble, r3.Vector{Z: 1})

	test.That(t, NewVelocity2D(0.01, 0, 0.02).IsStopped(0.1, 0.1), test.ShouldBeTrue)
	test.That(t, NewVelocity2D(0.2, 0, 0).IsStopped(0.1, 0.1), test.ShouldBeFalse)
	test.That(t, NewVelocity2D(0, 0.2, 0).IsStopped(0.1, 0.1), test.ShouldBeFalse)
	test.That(t, NewVelocity2D(0, 0, -0.2).IsStopped(0.1, 0.1), test.ShouldBeFalse)
}

func TestAngleHelpers(t *testing.T) {
	test.That(t, WrapTo2Pi(2*math.Pi), test.ShouldAlmostEqual, 0)
	test.That(t, WrapTo2Pi(-math.Pi/2), test.ShouldAlmostEqual, 3*math.Pi/2)
	test.That(t, WrapTo2Pi(5*math.Pi), test.ShouldAlmostEqual, math.Pi)

	test.That(t, NormalizeAngle(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldAlmostEqual, math.Pi)

	test.That(t, ShortestAngularDistance(0, math.Pi/2), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, ShortestAngularDistance(math.Pi/2, 0), test.ShouldAlmostEqual, -math.Pi/2)
	// wraps through the back instead of the long way around
	test.That(t, ShortestAngularDistance(-3*math.Pi/4, 3*math.Pi/4), test.ShouldAlmostEqual, -math.Pi/2)
}
