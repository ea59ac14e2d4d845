package localplanner

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/localplanner/spatialmath"
)

func testLimits() Limits {
	return Limits{
		MaxTransVel:      0.65,
		MinTransVel:      0.1,
		MaxVelX:          0.5,
		MinVelX:          -0.5,
		MaxVelY:          0,
		MinVelY:          0,
		MaxRotVel:        1.0,
		MinRotVel:        0.4,
		AccLimX:          2.5,
		AccLimY:          0,
		AccLimTheta:      3.2,
		XYGoalTolerance:  0.1,
		YawGoalTolerance: 0.1,
		TransStoppedVel:  0.1,
		RotStoppedVel:    0.1,
	}
}

func drainGenerator(gen *Generator) []*Trajectory {
	var out []*Trajectory
	for gen.HasNext() {
		traj, ok := gen.Next()
		if !ok {
			break
		}
		out = append(out, traj)
	}
	return out
}

func TestGeneratorWindowFromRest(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.7, 0.025, 0.1, 0.05, false)
	limits := testLimits()
	gen.Initialize(spatialmath.Pose2D{}, spatialmath.Velocity2D{}, spatialmath.Pose2D{X: 5}, &limits, SampleCounts{VX: 3, VY: 1, VTheta: 3})

	trajs := drainGenerator(gen)
	// x spans [-0.125, 0, 0.125], y is pinned at 0, theta spans [-0.16, 0, 0.16].
	// The two pure slow rotations sit under both minimums and are skipped; the
	// exact zero candidate survives.
	test.That(t, len(trajs), test.ShouldEqual, 7)

	sawZero := false
	for _, traj := range trajs {
		v := traj.Velocity
		if v == (spatialmath.Velocity2D{}) {
			sawZero = true
			test.That(t, traj.Size(), test.ShouldEqual, 1)
			test.That(t, traj.TimeDelta, test.ShouldAlmostEqual, 1.7)
			continue
		}
		inWindow := v.TranslationSpeed()+1e-4 >= limits.MinTransVel ||
			math.Abs(v.Theta)+1e-4 >= limits.MinRotVel
		test.That(t, inWindow, test.ShouldBeTrue)
		test.That(t, v.TranslationSpeed()-1e-4, test.ShouldBeLessThanOrEqualTo, limits.MaxTransVel)
	}
	test.That(t, sawZero, test.ShouldBeTrue)
}

func TestGeneratorMaxTransFilter(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.0, 0.025, 0.1, 0.05, false)
	limits := testLimits()
	limits.MinTransVel = 0
	limits.MinRotVel = 0
	limits.MaxTransVel = 0.3

	// moving fast already; the window tops out at the per-axis bound but the
	// translational norm filter must still reject anything above 0.3
	vel := spatialmath.Velocity2D{X: 0.3}
	gen.Initialize(spatialmath.Pose2D{}, vel, spatialmath.Pose2D{}, &limits, SampleCounts{VX: 5, VY: 1, VTheta: 1})
	for _, traj := range drainGenerator(gen) {
		test.That(t, traj.Velocity.TranslationSpeed()-1e-4, test.ShouldBeLessThanOrEqualTo, 0.3)
	}
}

func TestGeneratorStraightLineIntegration(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.0, 0.05, 0.1, 0.05, false)
	limits := testLimits()
	limits.MinTransVel = 0
	limits.MinRotVel = 0

	start := spatialmath.Pose2D{X: 1, Y: 2, Theta: math.Pi / 2}
	traj, ok := gen.Generate(start, spatialmath.Velocity2D{}, spatialmath.Velocity2D{X: 0.2}, &limits)
	test.That(t, ok, test.ShouldBeTrue)
	// ceil(1.0*0.2/0.05) = 4 steps of dt 0.25; poses are recorded before each step
	test.That(t, traj.Size(), test.ShouldEqual, 4)
	test.That(t, traj.TimeDelta, test.ShouldAlmostEqual, 0.25)
	test.That(t, traj.PoseAt(0), test.ShouldResemble, start)
	end := traj.Endpoint()
	// heading +y: all motion goes into y
	test.That(t, end.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, end.Y, test.ShouldAlmostEqual, 2.15)
	test.That(t, end.Theta, test.ShouldAlmostEqual, math.Pi/2)
}

func TestGeneratorArcIntegration(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.0, 0.05, 0.1, 0.05, false)
	limits := testLimits()
	limits.MinTransVel = 0
	limits.MinRotVel = 0

	traj, ok := gen.Generate(spatialmath.Pose2D{}, spatialmath.Velocity2D{}, spatialmath.Velocity2D{X: 0.1, Theta: 0.1}, &limits)
	test.That(t, ok, test.ShouldBeTrue)
	// linear demand 0.1/0.05 = 2 steps, angular demand 0.1/0.1 = 1 step
	test.That(t, traj.Size(), test.ShouldEqual, 2)
	test.That(t, traj.TimeDelta, test.ShouldAlmostEqual, 0.5)
	end := traj.Endpoint()
	test.That(t, end.X, test.ShouldAlmostEqual, 0.05)
	test.That(t, end.Y, test.ShouldAlmostEqual, 0)
	test.That(t, end.Theta, test.ShouldAlmostEqual, 0.05)
}

func TestGeneratorAccelerationMode(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.0, 0.25, 0.1, 0.05, true)
	limits := testLimits()
	limits.MinTransVel = 0
	limits.MinRotVel = 0
	limits.AccLimX = 0.4

	// target 0.5 m/s from rest: 2 steps of dt 0.5, per-step ramp 0.2 m/s. The
	// trajectory is tagged with the first reachable velocity, not the target.
	traj, ok := gen.Generate(spatialmath.Pose2D{}, spatialmath.Velocity2D{}, spatialmath.Velocity2D{X: 0.5}, &limits)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, traj.Velocity.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, traj.Size(), test.ShouldEqual, 2)
	// pose steps use the ramped velocities 0.4 then 0.5
	test.That(t, traj.PoseAt(1).X, test.ShouldAlmostEqual, 0.2)
}

func TestGeneratorTransAccelBand(t *testing.T) {
	gen := NewGenerator()
	gen.SetParameters(1.0, 0.05, 0.1, 0.05, false)
	limits := testLimits()
	limits.MinTransVel = 0
	limits.MinRotVel = 0
	limits.AccLimTrans = 0.1 // band of 0.005 per period

	vel := spatialmath.Velocity2D{X: 0.2}
	_, ok := gen.Generate(spatialmath.Pose2D{}, vel, spatialmath.Velocity2D{X: 0.3}, &limits)
	test.That(t, ok, test.ShouldBeFalse)
	traj, ok := gen.Generate(spatialmath.Pose2D{}, vel, spatialmath.Velocity2D{X: 0.203}, &limits)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, traj.Velocity.X, test.ShouldAlmostEqual, 0.203)
}

func TestSampleAxis(t *testing.T) {
	t.Run("span with injected zero", func(t *testing.T) {
		samples := sampleAxis(0.05, -1, 1, 1, 0.1, 2)
		test.That(t, len(samples), test.ShouldEqual, 3)
		test.That(t, samples[0], test.ShouldAlmostEqual, -0.05)
		test.That(t, samples[1], test.ShouldAlmostEqual, 0.15)
		test.That(t, samples[2], test.ShouldEqual, 0)
	})
	t.Run("single sample takes the midpoint", func(t *testing.T) {
		samples := sampleAxis(0.2, 0, 1, 1, 0.1, 1)
		test.That(t, len(samples), test.ShouldEqual, 1)
		test.That(t, samples[0], test.ShouldAlmostEqual, 0.2)
	})
	t.Run("collapsed window", func(t *testing.T) {
		samples := sampleAxis(0, 0, 0, 5, 0.1, 10)
		test.That(t, len(samples), test.ShouldEqual, 1)
		test.That(t, samples[0], test.ShouldEqual, 0)
	})
	t.Run("window beyond recovery is empty", func(t *testing.T) {
		samples := sampleAxis(1.0, -0.5, 0.5, 1, 0.1, 3)
		test.That(t, samples, test.ShouldBeNil)
	})
	t.Run("non-positive count acts as one", func(t *testing.T) {
		samples := sampleAxis(0.2, 0, 1, 1, 0.1, 0)
		test.That(t, len(samples), test.ShouldEqual, 1)
	})
}

func TestTrajectoryAccessors(t *testing.T) {
	traj := &Trajectory{}
	test.That(t, traj.Endpoint(), test.ShouldResemble, spatialmath.Pose2D{})
	traj.AddPose(spatialmath.Pose2D{X: 1})
	traj.AddPose(spatialmath.Pose2D{X: 2})
	test.That(t, traj.Size(), test.ShouldEqual, 2)
	test.That(t, traj.Endpoint().X, test.ShouldEqual, 2.0)
	test.That(t, traj.PoseAt(0).X, test.ShouldEqual, 1.0)
	test.That(t, len(traj.Poses()), test.ShouldEqual, 2)
}
