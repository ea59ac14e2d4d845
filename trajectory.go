package localplanner

import (
	"fmt"

	"go.viam.com/localplanner/spatialmath"
)

// Reserved negative costs. Any negative cost marks a trajectory as rejected; the
// distinct values identify which stage rejected it in logs and diagnostics.
const (
	costUnscored        = -7.0 // fresh trajectory, or no feasible candidate found
	costOffGrid         = -4.0 // a simulated pose left the costmap
	costObstacleCell    = -3.0 // distance field marked the scored cell an obstacle
	costUnreachableCell = -2.0 // distance field never reached the scored cell
	costOscillation     = -5.0 // candidate reverses a locked oscillation direction
	costFootprintHit    = -6.0 // footprint sweep crossed a lethal or inflated cell
)

// Trajectory is one forward-simulated candidate: the body-frame velocity that
// generated it, the simulated poses, the time between them, and the accumulated
// score. A negative Cost means the trajectory was rejected or never scored.
type Trajectory struct {
	// Velocity is the command a base would execute to follow this trajectory.
	Velocity spatialmath.Velocity2D
	// TimeDelta is the simulated time between consecutive poses.
	TimeDelta float64
	// Cost is the weighted sum of critic scores, or a negative sentinel.
	Cost float64

	poses []spatialmath.Pose2D
}

func newTrajectory(velocity spatialmath.Velocity2D, timeDelta float64, capacity int) *Trajectory {
	return &Trajectory{
		Velocity:  velocity,
		TimeDelta: timeDelta,
		Cost:      costUnscored,
		poses:     make([]spatialmath.Pose2D, 0, capacity),
	}
}

// AddPose appends a simulated pose.
func (t *Trajectory) AddPose(pose spatialmath.Pose2D) {
	t.poses = append(t.poses, pose)
}

// Size returns the number of simulated poses.
func (t *Trajectory) Size() int {
	return len(t.poses)
}

// PoseAt returns the i-th simulated pose.
func (t *Trajectory) PoseAt(i int) spatialmath.Pose2D {
	return t.poses[i]
}

// Endpoint returns the final simulated pose. Generated trajectories always hold at
// least one pose; Endpoint on an empty trajectory returns the zero pose.
func (t *Trajectory) Endpoint() spatialmath.Pose2D {
	if len(t.poses) == 0 {
		return spatialmath.Pose2D{}
	}
	return t.poses[len(t.poses)-1]
}

// Poses returns the simulated poses. Callers must not modify the returned slice.
func (t *Trajectory) Poses() []spatialmath.Pose2D {
	return t.poses
}

func (t *Trajectory) String() string {
	return fmt.Sprintf("trajectory %s cost %.3f over %d poses", t.Velocity, t.Cost, len(t.poses))
}
