package localplanner

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/localplanner/costmap"
	"go.viam.com/localplanner/spatialmath"
)

func obstacleTestGrid() *costmap.Static {
	// 5m x 5m at 0.5m resolution with one lethal cell spanning [2.5, 3.0)^2
	cm := costmap.NewStatic(10, 10, 0.5, 0, 0)
	cm.SetObstacle(5, 5)
	return cm
}

func pointCritic(cm costmap.Costmap) *obstacleCritic {
	c := newObstacleCritic(cm)
	c.setParams(1.0, 0.25, 0.2, 0, false, nil)
	return c
}

func TestObstacleCriticCenterCell(t *testing.T) {
	cm := obstacleTestGrid()
	c := pointCritic(cm)

	test.That(t, c.Score(endpointTrajectory(spatialmath.Pose2D{X: 1, Y: 1})), test.ShouldEqual, 0)
	test.That(t, c.Score(endpointTrajectory(spatialmath.Pose2D{X: 2.75, Y: 2.75})), test.ShouldEqual, costFootprintHit)
	test.That(t, c.Score(endpointTrajectory(spatialmath.Pose2D{X: 9, Y: 9})), test.ShouldEqual, costOffGrid)
}

func TestObstacleCriticFootprintSweep(t *testing.T) {
	cm := obstacleTestGrid()
	square := []r3.Vector{{X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}, {X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}}

	withFootprint := newObstacleCritic(cm)
	withFootprint.setParams(1.0, 0.25, 0, 0, false, square)
	point := pointCritic(cm)

	// the center cell is clear but the right footprint edge crosses the obstacle
	pose := spatialmath.Pose2D{X: 2.25, Y: 2.75}
	test.That(t, point.Score(endpointTrajectory(pose)), test.ShouldEqual, 0)
	test.That(t, withFootprint.Score(endpointTrajectory(pose)), test.ShouldEqual, costFootprintHit)

	// far from the obstacle both agree
	clearPose := spatialmath.Pose2D{X: 1, Y: 1}
	test.That(t, withFootprint.Score(endpointTrajectory(clearPose)), test.ShouldEqual, 0)
}

func TestObstacleCriticFootprintScale(t *testing.T) {
	c := pointCritic(obstacleTestGrid())

	fast := &Trajectory{Velocity: spatialmath.Velocity2D{X: 0.625}}
	slow := &Trajectory{Velocity: spatialmath.Velocity2D{X: 0.2}}
	test.That(t, c.footprintScale(fast), test.ShouldAlmostEqual, 1.1)
	test.That(t, c.footprintScale(slow), test.ShouldEqual, 1.0)
}

func TestObstacleCriticAggregation(t *testing.T) {
	cm := costmap.NewStatic(10, 10, 0.5, 0, 0)
	cm.SetCost(2, 2, 100)

	traj := &Trajectory{}
	traj.AddPose(spatialmath.Pose2D{X: 1.25, Y: 1.25})
	traj.AddPose(spatialmath.Pose2D{X: 1.25, Y: 1.25})

	maxCritic := newObstacleCritic(cm)
	maxCritic.setParams(1.0, 0.25, 0, 0, false, nil)
	test.That(t, maxCritic.Score(traj), test.ShouldEqual, 100)

	sumCritic := newObstacleCritic(cm)
	sumCritic.setParams(1.0, 0.25, 0, 0, true, nil)
	test.That(t, sumCritic.Score(traj), test.ShouldEqual, 200)
}

func TestObstacleCriticStopBuffer(t *testing.T) {
	cm := obstacleTestGrid()

	traj := &Trajectory{Velocity: spatialmath.Velocity2D{X: 1.0}, TimeDelta: 0.25}
	traj.AddPose(spatialmath.Pose2D{X: 2.0, Y: 2.75})

	// without a stop buffer the endpoint is clear of the obstacle
	noBuffer := newObstacleCritic(cm)
	noBuffer.setParams(1.0, 0.25, 0, 0, false, nil)
	test.That(t, noBuffer.Score(traj), test.ShouldEqual, 0)

	// coasting another half second at 1 m/s runs into it
	buffered := newObstacleCritic(cm)
	buffered.setParams(1.0, 0.25, 0, 0.5, false, nil)
	test.That(t, buffered.Score(traj), test.ShouldEqual, costFootprintHit)
}

func TestTraceGridLine(t *testing.T) {
	var cells [][2]int
	traceGridLine(0, 0, 2, 2, func(cx, cy int) bool {
		cells = append(cells, [2]int{cx, cy})
		return true
	})
	test.That(t, cells, test.ShouldResemble, [][2]int{{0, 0}, {1, 1}, {2, 2}})

	visits := 0
	traceGridLine(0, 0, 5, 0, func(cx, cy int) bool {
		visits++
		return false
	})
	test.That(t, visits, test.ShouldEqual, 1)
}
