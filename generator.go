package localplanner

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/localplanner/spatialmath"
)

// SampleCounts sets how many velocity samples each axis contributes to the grid.
type SampleCounts struct {
	VX     int
	VY     int
	VTheta int
}

// Generator lazily enumerates forward-simulated candidate trajectories over the
// velocity window reachable this cycle. Initialize restarts the sequence; Next
// walks it.
type Generator struct {
	simTime               float64
	simGranularity        float64
	angularSimGranularity float64
	simPeriod             float64
	sampleAccelerations   bool

	pose     spatialmath.Pose2D
	velocity spatialmath.Velocity2D
	limits   Limits
	samples  []spatialmath.Velocity2D
	next     int
}

// NewGenerator returns a generator with no parameters set; SetParameters must be
// called before Initialize.
func NewGenerator() *Generator {
	return &Generator{}
}

// SetParameters configures the simulation horizon. sampleAccelerations switches
// from sampling velocities reachable within one control period to sampling
// acceleration targets over the whole horizon, with per-step velocity ramping
// during simulation.
func (g *Generator) SetParameters(
	simTime, simGranularity, angularSimGranularity, simPeriod float64,
	sampleAccelerations bool,
) {
	g.simTime = simTime
	g.simGranularity = simGranularity
	g.angularSimGranularity = angularSimGranularity
	g.simPeriod = simPeriod
	g.sampleAccelerations = sampleAccelerations
}

// Initialize fixes the start state for one planning cycle and rebuilds the
// velocity sample grid.
func (g *Generator) Initialize(
	pose spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	goal spatialmath.Pose2D,
	limits *Limits,
	counts SampleCounts,
) {
	g.pose = pose
	g.velocity = velocity
	g.limits = *limits
	g.next = 0
	g.samples = g.sampleVelocities(velocity, limits, counts)
}

// HasNext reports whether unexamined samples remain this cycle.
func (g *Generator) HasNext() bool {
	return g.next < len(g.samples)
}

// Next simulates and returns the next viable candidate, skipping samples that fall
// outside the admissible translational window. It returns false once the sample
// grid is exhausted.
func (g *Generator) Next() (*Trajectory, bool) {
	for g.next < len(g.samples) {
		sample := g.samples[g.next]
		g.next++
		if traj, ok := g.Generate(g.pose, g.velocity, sample, &g.limits); ok {
			return traj, true
		}
	}
	return nil, false
}

// Generate simulates a single velocity sample from the given state, independent of
// the sample grid. It returns false when the sample is outside the admissible
// translational window.
func (g *Generator) Generate(
	pose spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	sample spatialmath.Velocity2D,
	limits *Limits,
) (*Trajectory, bool) {
	const eps = 1e-4
	speed := sample.TranslationSpeed()
	zero := sample.X == 0 && sample.Y == 0 && sample.Theta == 0
	if !zero {
		// the zero candidate always stands for stopping in place; everything else
		// must clear the translational window
		if limits.MinTransVel >= 0 && speed+eps < limits.MinTransVel &&
			limits.MinRotVel >= 0 && math.Abs(sample.Theta)+eps < limits.MinRotVel {
			return nil, false
		}
		if limits.MaxTransVel > 0 && speed-eps > limits.MaxTransVel {
			return nil, false
		}
		if limits.AccLimTrans > 0 {
			horizon := g.simPeriod
			if g.sampleAccelerations {
				horizon = g.simTime
			}
			if math.Abs(speed-velocity.TranslationSpeed())-eps > limits.AccLimTrans*horizon {
				return nil, false
			}
		}
	}

	steps := int(math.Ceil(math.Max(
		g.simTime*speed/g.simGranularity,
		g.simTime*math.Abs(sample.Theta)/g.angularSimGranularity,
	)))
	if steps < 1 {
		steps = 1
	}
	dt := g.simTime / float64(steps)

	loopVel := sample
	if g.sampleAccelerations {
		// the sample is a target; what a base would actually be commanded is the
		// velocity reachable one step toward it
		loopVel = stepTowardVelocity(sample, velocity, limits, dt)
	}
	traj := newTrajectory(loopVel, dt, steps)
	current := pose
	for i := 0; i < steps; i++ {
		traj.AddPose(current)
		if g.sampleAccelerations {
			loopVel = stepTowardVelocity(sample, loopVel, limits, dt)
		}
		current = advancePose(current, loopVel, dt)
	}
	return traj, true
}

func (g *Generator) sampleVelocities(
	velocity spatialmath.Velocity2D,
	limits *Limits,
	counts SampleCounts,
) []spatialmath.Velocity2D {
	horizon := g.simPeriod
	if g.sampleAccelerations {
		horizon = g.simTime
	}
	xs := sampleAxis(velocity.X, limits.MinVelX, limits.MaxVelX, limits.AccLimX, horizon, counts.VX)
	ys := sampleAxis(velocity.Y, limits.MinVelY, limits.MaxVelY, limits.AccLimY, horizon, counts.VY)
	ths := sampleAxis(velocity.Theta, -limits.MaxRotVel, limits.MaxRotVel, limits.AccLimTheta, horizon, counts.VTheta)
	out := make([]spatialmath.Velocity2D, 0, len(xs)*len(ys)*len(ths))
	for _, vx := range xs {
		for _, vy := range ys {
			for _, vth := range ths {
				out = append(out, spatialmath.Velocity2D{X: vx, Y: vy, Theta: vth})
			}
		}
	}
	return out
}

// sampleAxis spans the velocities reachable on one axis within the horizon. A
// window that crosses zero always includes the exact zero sample. An empty window
// (current velocity outside the limit band beyond recovery) yields no samples.
func sampleAxis(current, minLimit, maxLimit, acc, horizon float64, count int) []float64 {
	if count < 1 {
		count = 1
	}
	lo := math.Max(minLimit, current-acc*horizon)
	hi := math.Min(maxLimit, current+acc*horizon)
	if hi < lo {
		return nil
	}
	var samples []float64
	if count == 1 || hi == lo {
		samples = []float64{lo + (hi-lo)/2}
	} else {
		samples = floats.Span(make([]float64, count), lo, hi)
	}
	if lo < 0 && hi > 0 && !containsZero(samples) {
		samples = append(samples, 0)
	}
	return samples
}

func containsZero(samples []float64) bool {
	for _, s := range samples {
		if s == 0 {
			return true
		}
	}
	return false
}

// stepTowardVelocity moves each axis of current toward target by at most its
// acceleration limit times dt.
func stepTowardVelocity(target, current spatialmath.Velocity2D, limits *Limits, dt float64) spatialmath.Velocity2D {
	ax, ay, ath := limits.accLimits()
	return spatialmath.Velocity2D{
		X:     stepTowardValue(target.X, current.X, ax*dt),
		Y:     stepTowardValue(target.Y, current.Y, ay*dt),
		Theta: stepTowardValue(target.Theta, current.Theta, ath*dt),
	}
}

func stepTowardValue(target, current, maxStep float64) float64 {
	if current < target {
		return math.Min(target, current+maxStep)
	}
	return math.Max(target, current-maxStep)
}

// advancePose integrates a body-frame velocity over dt from the given pose.
func advancePose(pose spatialmath.Pose2D, vel spatialmath.Velocity2D, dt float64) spatialmath.Pose2D {
	sin, cos := math.Sincos(pose.Theta)
	return spatialmath.Pose2D{
		X:     pose.X + (vel.X*cos-vel.Y*sin)*dt,
		Y:     pose.Y + (vel.X*sin+vel.Y*cos)*dt,
		Theta: pose.Theta + vel.Theta*dt,
	}
}
