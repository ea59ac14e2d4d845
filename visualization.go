package localplanner

import "go.viam.com/localplanner/spatialmath"

// CellCost is the per-critic breakdown of one grid cell, in the raw distance-field
// units each critic scores in, plus the weighted total a trajectory ending in the
// cell would pay.
type CellCost struct {
	CellX     int
	CellY     int
	WorldX    float64
	WorldY    float64
	Occupancy uint8

	PathDistance      float64
	GoalDistance      float64
	GoalFrontDistance float64
	AlignmentDistance float64
	Total             float64
}

// A Visualizer receives diagnostic emissions from the planner. Calls happen inside
// the planning cycle; implementations must return quickly and never feed back into
// planning. Empty slices mean the cycle produced nothing to show.
type Visualizer interface {
	// PublishGlobalPlan receives the window of the reference path used this cycle.
	PublishGlobalPlan(poses []spatialmath.Pose2D)
	// PublishLocalPlan receives the poses of the chosen trajectory.
	PublishLocalPlan(poses []spatialmath.Pose2D)
	// PublishTrajectoryCloud receives every candidate the search scored, rejected
	// candidates included.
	PublishTrajectoryCloud(trajectories []Trajectory)
	// PublishCostCloud receives the cost breakdown of every valid grid cell.
	PublishCostCloud(cells []CellCost)
}

// NoopVisualizer drops everything published to it.
type NoopVisualizer struct{}

// PublishGlobalPlan does nothing.
func (NoopVisualizer) PublishGlobalPlan([]spatialmath.Pose2D) {}

// PublishLocalPlan does nothing.
func (NoopVisualizer) PublishLocalPlan([]spatialmath.Pose2D) {}

// PublishTrajectoryCloud does nothing.
func (NoopVisualizer) PublishTrajectoryCloud([]Trajectory) {}

// PublishCostCloud does nothing.
func (NoopVisualizer) PublishCostCloud([]CellCost) {}
