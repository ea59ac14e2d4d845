package localplanner

import (
	"math"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// axisGuard tracks one velocity axis: the sign of its last decisive motion and,
// after a reversal, the sign it is locked out of until the robot moves far enough
// from where the reversal happened.
type axisGuard struct {
	lastSign   int
	lockedSign int
	lockPose   spatialmath.Pose2D
}

// observe folds one selected axis velocity in and reports whether a new lock
// engaged. Magnitudes at or below the stopped threshold leave the guard untouched;
// a sign reversal locks the departed direction at the given pose.
func (a *axisGuard) observe(pose spatialmath.Pose2D, value, stoppedThreshold float64) bool {
	engaged := false
	switch {
	case value > stoppedThreshold:
		if a.lastSign == -1 {
			a.lockedSign = -1
			a.lockPose = pose
			engaged = true
		}
		a.lastSign = 1
	case value < -stoppedThreshold:
		if a.lastSign == 1 {
			a.lockedSign = 1
			a.lockPose = pose
			engaged = true
		}
		a.lastSign = -1
	}
	return engaged
}

// vetoes reports whether the value moves into the locked direction.
func (a *axisGuard) vetoes(value float64) bool {
	return (a.lockedSign == 1 && value > 0) || (a.lockedSign == -1 && value < 0)
}

func (a *axisGuard) unlock() {
	a.lockedSign = 0
}

func (a *axisGuard) reset() {
	a.lastSign = 0
	a.lockedSign = 0
}

// oscillationCritic vetoes candidates that would immediately reverse a recently
// reversed axis, which breaks limit cycles between opposing commands. Its scale is
// fixed at one: scores are only ever zero or a veto, so the weight is inert.
type oscillationCritic struct {
	scale  float64
	logger logging.Logger

	x     axisGuard
	y     axisGuard
	theta axisGuard

	resetDist       float64
	resetAngle      float64
	minTransVel     float64
	transStoppedVel float64
	rotStoppedVel   float64
}

func newOscillationCritic(logger logging.Logger) *oscillationCritic {
	return &oscillationCritic{scale: 1, logger: logger}
}

func (c *oscillationCritic) setParams(resetDist, resetAngle, minTransVel, transStoppedVel, rotStoppedVel float64) {
	c.resetDist = resetDist
	c.resetAngle = resetAngle
	c.minTransVel = minTransVel
	c.transStoppedVel = transStoppedVel
	c.rotStoppedVel = rotStoppedVel
}

func (c *oscillationCritic) Name() string {
	return "oscillation"
}

func (c *oscillationCritic) Scale() float64 {
	return c.scale
}

func (c *oscillationCritic) SetScale(scale float64) {
	c.scale = scale
}

func (c *oscillationCritic) Prepare() error {
	return nil
}

// Score is zero unless the candidate re-enters a locked direction.
func (c *oscillationCritic) Score(traj *Trajectory) float64 {
	v := traj.Velocity
	if c.x.vetoes(v.X) || c.y.vetoes(v.Y) || c.theta.vetoes(v.Theta) {
		return costOscillation
	}
	return 0
}

// update folds the cycle's selected trajectory into the guards and releases any
// lock the robot has moved far enough away from. A rejected selection only runs
// the release check.
func (c *oscillationCritic) update(pose spatialmath.Pose2D, selected *Trajectory) {
	if selected != nil && selected.Cost >= 0 {
		c.observe(pose, selected.Velocity)
	}
	c.maybeRelease(pose)
}

func (c *oscillationCritic) observe(pose spatialmath.Pose2D, v spatialmath.Velocity2D) {
	if c.x.observe(pose, v.X, c.transStoppedVel) {
		c.logger.Debugw("oscillation lock engaged", "axis", "x", "forbiddenSign", c.x.lockedSign)
	}
	if math.Abs(v.X) <= c.minTransVel {
		if c.y.observe(pose, v.Y, c.transStoppedVel) {
			c.logger.Debugw("oscillation lock engaged", "axis", "y", "forbiddenSign", c.y.lockedSign)
		}
		if c.theta.observe(pose, v.Theta, c.rotStoppedVel) {
			c.logger.Debugw("oscillation lock engaged", "axis", "theta", "forbiddenSign", c.theta.lockedSign)
		}
	} else {
		// sideways and rotational dithering only matters while x motion is slow
		c.y.reset()
		c.theta.reset()
	}
}

func (c *oscillationCritic) maybeRelease(pose spatialmath.Pose2D) {
	if c.x.lockedSign != 0 && pose.DistanceTo(c.x.lockPose) > c.resetDist {
		c.x.unlock()
	}
	if c.y.lockedSign != 0 && pose.DistanceTo(c.y.lockPose) > c.resetDist {
		c.y.unlock()
	}
	if c.theta.lockedSign != 0 &&
		math.Abs(spatialmath.ShortestAngularDistance(c.theta.lockPose.Theta, pose.Theta)) > c.resetAngle {
		c.theta.unlock()
	}
}

// Reset clears every guard. A new plan does this, as does the switch to the final
// stop and rotate behavior.
func (c *oscillationCritic) Reset() {
	c.x.reset()
	c.y.reset()
	c.theta.reset()
}
