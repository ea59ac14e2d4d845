package localplanner

import (
	"math"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
	"go.viam.com/localplanner/utils"
)

// TrajectoryChecker validates a single velocity sample from the given state.
type TrajectoryChecker func(pose spatialmath.Pose2D, velocity, sample spatialmath.Velocity2D) bool

// StopRotateController owns the final approach. Once the robot's position has been
// inside the goal tolerance it latches: it brings translation to a stop under the
// acceleration limits, then rotates in place to the goal heading. The latch holds
// until Reset, so a base nudged back out of position tolerance does not resume
// driving.
type StopRotateController struct {
	logger   logging.Logger
	latched  bool
	rotating bool
}

func NewStopRotateController(logger logging.Logger) *StopRotateController {
	return &StopRotateController{logger: logger}
}

// Reset returns the controller to driving mode; accepting a new plan does this.
func (c *StopRotateController) Reset() {
	c.latched = false
	c.rotating = false
}

// Latched reports whether final approach behavior has begun.
func (c *StopRotateController) Latched() bool {
	return c.latched
}

// PositionReached reports whether the robot position satisfies the goal position
// tolerance, or already did once.
func (c *StopRotateController) PositionReached(pose, goal spatialmath.Pose2D, limits *Limits) bool {
	return c.latched || pose.DistanceTo(goal) <= limits.XYGoalTolerance
}

// GoalReached reports whether position, heading, and stopped velocity all hold.
func (c *StopRotateController) GoalReached(
	pose, goal spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	limits *Limits,
) bool {
	if !c.PositionReached(pose, goal, limits) {
		return false
	}
	if math.Abs(spatialmath.ShortestAngularDistance(pose.Theta, goal.Theta)) > limits.YawGoalTolerance {
		return false
	}
	return velocity.IsStopped(limits.TransStoppedVel, limits.RotStoppedVel)
}

// ComputeCommand returns this cycle's final-approach command and latches. The
// checker, when non-nil, validates candidate commands; an infeasible command
// degrades to holding still with a warning rather than failing the cycle.
func (c *StopRotateController) ComputeCommand(
	pose, goal spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	limits *Limits,
	simPeriod float64,
	check TrajectoryChecker,
) spatialmath.Velocity2D {
	c.latched = true
	angle := spatialmath.ShortestAngularDistance(pose.Theta, goal.Theta)
	if math.Abs(angle) <= limits.YawGoalTolerance {
		return spatialmath.Velocity2D{}
	}
	if !c.rotating && !velocity.IsStopped(limits.TransStoppedVel, limits.RotStoppedVel) {
		return c.stopWithAccLimits(pose, velocity, limits, simPeriod, check)
	}
	c.rotating = true
	return c.rotateToGoal(pose, velocity, angle, limits, simPeriod, check)
}

// stopWithAccLimits ramps every axis toward zero as hard as the acceleration
// limits allow within one control period.
func (c *StopRotateController) stopWithAccLimits(
	pose spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	limits *Limits,
	simPeriod float64,
	check TrajectoryChecker,
) spatialmath.Velocity2D {
	ax, ay, ath := limits.accLimits()
	cmd := spatialmath.Velocity2D{
		X:     brakeAxis(velocity.X, ax*simPeriod),
		Y:     brakeAxis(velocity.Y, ay*simPeriod),
		Theta: brakeAxis(velocity.Theta, ath*simPeriod),
	}
	if check != nil && !check(pose, velocity, cmd) {
		c.logger.Warnw("stopping command is infeasible, holding still", "command", cmd)
		return spatialmath.Velocity2D{}
	}
	return cmd
}

func brakeAxis(v, maxStep float64) float64 {
	return utils.Sign(v) * math.Max(0, math.Abs(v)-maxStep)
}

// rotateToGoal commands an in-place rotation toward the goal heading, bounded by
// what the acceleration limit allows this period and by the speed the base can
// still stop from without overshooting.
func (c *StopRotateController) rotateToGoal(
	pose spatialmath.Pose2D,
	velocity spatialmath.Velocity2D,
	angle float64,
	limits *Limits,
	simPeriod float64,
	check TrajectoryChecker,
) spatialmath.Velocity2D {
	mag := utils.Clamp(math.Abs(angle), limits.RotStoppedVel, limits.MaxRotVel)
	maxAcc := math.Abs(velocity.Theta) + limits.AccLimTheta*simPeriod
	minAcc := math.Max(0, math.Abs(velocity.Theta)-limits.AccLimTheta*simPeriod)
	mag = utils.Clamp(mag, minAcc, maxAcc)
	if limits.AccLimTheta > 0 {
		mag = math.Min(mag, math.Sqrt(2*limits.AccLimTheta*math.Abs(angle)))
	}
	mag = utils.Clamp(mag, limits.RotStoppedVel, limits.MaxRotVel)
	cmd := spatialmath.Velocity2D{Theta: utils.Sign(angle) * mag}
	if check != nil && !check(pose, velocity, cmd) {
		c.logger.Warnw("in-place rotation is infeasible, holding still", "command", cmd)
		return spatialmath.Velocity2D{}
	}
	return cmd
}
