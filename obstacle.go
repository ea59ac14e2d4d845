package localplanner

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/localplanner/costmap"
	"go.viam.com/localplanner/spatialmath"
	"go.viam.com/localplanner/utils"
)

// obstacleCritic scores trajectories by the occupancy cost swept by the robot
// footprint, grown at high speed, and vetoes any candidate that touches a lethal
// or inflated cell. The sweep continues past the endpoint for the configured stop
// buffer so the base always has room to come to rest.
type obstacleCritic struct {
	scale float64
	cm    costmap.Costmap

	footprint        []r3.Vector
	maxTransVel      float64
	scalingSpeed     float64
	maxScalingFactor float64
	stopTimeBuffer   float64
	sumScores        bool

	scratch []r3.Vector
}

func newObstacleCritic(cm costmap.Costmap) *obstacleCritic {
	return &obstacleCritic{cm: cm}
}

func (c *obstacleCritic) setParams(
	maxTransVel, scalingSpeed, maxScalingFactor, stopTimeBuffer float64,
	sumScores bool,
	footprint []r3.Vector,
) {
	c.maxTransVel = maxTransVel
	c.scalingSpeed = scalingSpeed
	c.maxScalingFactor = maxScalingFactor
	c.stopTimeBuffer = stopTimeBuffer
	c.sumScores = sumScores
	c.footprint = footprint
	c.scratch = make([]r3.Vector, len(footprint))
}

func (c *obstacleCritic) Name() string {
	return "obstacle"
}

func (c *obstacleCritic) Scale() float64 {
	return c.scale
}

func (c *obstacleCritic) SetScale(scale float64) {
	c.scale = scale
}

func (c *obstacleCritic) Prepare() error {
	return nil
}

func (c *obstacleCritic) Score(traj *Trajectory) float64 {
	grow := c.footprintScale(traj)
	total := 0.0
	tally := func(cost float64) {
		if c.sumScores {
			total += cost
		} else if cost > total {
			total = cost
		}
	}
	for i := 0; i < traj.Size(); i++ {
		cost := c.poseCost(traj.PoseAt(i), grow)
		if cost < 0 {
			return cost
		}
		tally(cost)
	}
	if c.stopTimeBuffer > 0 && traj.Size() > 0 && traj.Velocity != (spatialmath.Velocity2D{}) {
		steps := int(math.Ceil(c.stopTimeBuffer / traj.TimeDelta))
		pose := traj.Endpoint()
		for s := 0; s < steps; s++ {
			pose = advancePose(pose, traj.Velocity, traj.TimeDelta)
			cost := c.poseCost(pose, grow)
			if cost < 0 {
				return cost
			}
			tally(cost)
		}
	}
	return total
}

// footprintScale grows the footprint for candidates moving faster than the scaling
// speed, up to maxScalingFactor at the translational limit.
func (c *obstacleCritic) footprintScale(traj *Trajectory) float64 {
	speed := traj.Velocity.TranslationSpeed()
	if speed <= c.scalingSpeed || c.maxTransVel <= c.scalingSpeed {
		return 1.0
	}
	ratio := (speed - c.scalingSpeed) / (c.maxTransVel - c.scalingSpeed)
	return 1.0 + c.maxScalingFactor*ratio
}

// poseCost returns the worst occupancy cost under the footprint at one pose, or a
// negative sentinel when any part of it is lethal, inflated, or off the grid. An
// empty footprint checks only the center cell.
func (c *obstacleCritic) poseCost(pose spatialmath.Pose2D, grow float64) float64 {
	cx, cy, ok := costmap.WorldToMap(c.cm, pose.X, pose.Y)
	if !ok {
		return costOffGrid
	}
	if c.cm.IsLethalOrInflated(cx, cy) {
		return costFootprintHit
	}
	worst := float64(c.cm.CostAt(cx, cy))
	n := len(c.footprint)
	if n < 3 {
		return worst
	}
	sin, cos := math.Sincos(pose.Theta)
	for i, v := range c.footprint {
		x := v.X * grow
		y := v.Y * grow
		c.scratch[i] = r3.Vector{X: pose.X + x*cos - y*sin, Y: pose.Y + x*sin + y*cos}
	}
	for i := 0; i < n; i++ {
		cost := c.edgeCost(c.scratch[i], c.scratch[(i+1)%n])
		if cost < 0 {
			return cost
		}
		if cost > worst {
			worst = cost
		}
	}
	return worst
}

// edgeCost walks the grid cells under one footprint edge.
func (c *obstacleCritic) edgeCost(a, b r3.Vector) float64 {
	x0, y0, ok := costmap.WorldToMap(c.cm, a.X, a.Y)
	if !ok {
		return costOffGrid
	}
	x1, y1, ok := costmap.WorldToMap(c.cm, b.X, b.Y)
	if !ok {
		return costOffGrid
	}
	worst := 0.0
	hit := false
	traceGridLine(x0, y0, x1, y1, func(cx, cy int) bool {
		if c.cm.IsLethalOrInflated(cx, cy) {
			hit = true
			return false
		}
		if v := float64(c.cm.CostAt(cx, cy)); v > worst {
			worst = v
		}
		return true
	})
	if hit {
		return costFootprintHit
	}
	return worst
}

// traceGridLine visits the cells of a grid line segment in order, stopping early
// when visit returns false.
func traceGridLine(x0, y0, x1, y1 int, visit func(cx, cy int) bool) {
	dx := utils.AbsInt(x1 - x0)
	dy := -utils.AbsInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if !visit(x, y) {
			return
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}
