package localplanner

// Limits are the kinodynamic bounds and goal tolerances a planning cycle runs
// under. The planner snapshots them from the active Config; a cycle never sees a
// partially updated set.
type Limits struct {
	// Translational speed bounds on the norm of (vx, vy).
	MaxTransVel float64
	MinTransVel float64

	// Per-axis velocity bounds.
	MaxVelX   float64
	MinVelX   float64
	MaxVelY   float64
	MinVelY   float64
	MaxRotVel float64
	MinRotVel float64

	// Per-axis acceleration magnitudes. AccLimTrans additionally bounds how far the
	// sampled translational speed may move from the current one; zero disables it.
	AccLimX     float64
	AccLimY     float64
	AccLimTheta float64
	AccLimTrans float64

	// Goal tolerances.
	XYGoalTolerance  float64
	YawGoalTolerance float64

	// Velocities at or below these magnitudes count as stopped.
	TransStoppedVel float64
	RotStoppedVel   float64

	// PrunePlan drops passed plan poses as the robot makes progress.
	PrunePlan bool
}

// accLimits returns the per-axis acceleration magnitudes in x, y, theta order.
func (l *Limits) accLimits() (x, y, theta float64) {
	return l.AccLimX, l.AccLimY, l.AccLimTheta
}
