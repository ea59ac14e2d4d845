package localplanner

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/localplanner/costmap"
	"go.viam.com/localplanner/spatialmath"
)

// mapGrid is a per-cell distance field over the costmap. Distances count
// 4-connected steps from the nearest seeded target cell; propagation never enters
// lethal or inflated cells. Two sentinel values sit above every reachable
// distance: obstacleCost for cells propagation touched but could not enter, and
// unreachableCost for cells it never reached.
type mapGrid struct {
	width  int
	height int
	dist   []float64
	marked []bool
}

func newMapGrid(width, height int) *mapGrid {
	m := &mapGrid{}
	m.resize(width, height)
	return m
}

func (m *mapGrid) resize(width, height int) {
	m.width = width
	m.height = height
	m.dist = make([]float64, width*height)
	m.marked = make([]bool, width*height)
	m.resetDistances()
}

func (m *mapGrid) resetDistances() {
	unreachable := m.unreachableCost()
	for i := range m.dist {
		m.dist[i] = unreachable
		m.marked[i] = false
	}
}

func (m *mapGrid) obstacleCost() float64 {
	return float64(m.width * m.height)
}

func (m *mapGrid) unreachableCost() float64 {
	return float64(m.width*m.height) + 1
}

func (m *mapGrid) index(cx, cy int) int {
	return cy*m.width + cx
}

func (m *mapGrid) inBounds(cx, cy int) bool {
	return cx >= 0 && cx < m.width && cy >= 0 && cy < m.height
}

func (m *mapGrid) distanceAt(cx, cy int) float64 {
	return m.dist[m.index(cx, cy)]
}

// setTargetCells seeds every plan pose that lies on the grid and propagates
// distances outward. The plan is resampled first so consecutive poses are at most
// one cell apart and seeding stays continuous.
func (m *mapGrid) setTargetCells(cm costmap.Costmap, plan []spatialmath.Pose2D) error {
	m.resetDistances()
	adjusted := adjustPlanResolution(plan, cm.Resolution())
	var queue []int
	started := false
	for _, pose := range adjusted {
		cx, cy, ok := costmap.WorldToMap(cm, pose.X, pose.Y)
		if ok && cm.CostAt(cx, cy) != costmap.NoInformation {
			idx := m.index(cx, cy)
			if !m.marked[idx] {
				m.dist[idx] = 0
				m.marked[idx] = true
				queue = append(queue, idx)
			}
			started = true
		} else if started {
			// the plan has left the grid; seeding past the gap would teleport the field
			break
		}
	}
	if !started {
		return errors.New("no plan pose lies on the grid")
	}
	m.computeTargetDistances(cm, queue)
	return nil
}

// setLocalGoal seeds only the last plan pose that lies on the grid.
func (m *mapGrid) setLocalGoal(cm costmap.Costmap, plan []spatialmath.Pose2D) error {
	m.resetDistances()
	adjusted := adjustPlanResolution(plan, cm.Resolution())
	goalX, goalY := -1, -1
	started := false
	for _, pose := range adjusted {
		cx, cy, ok := costmap.WorldToMap(cm, pose.X, pose.Y)
		if ok {
			goalX, goalY = cx, cy
			started = true
		} else if started {
			break
		}
	}
	if !started {
		return errors.New("no plan pose lies on the grid")
	}
	idx := m.index(goalX, goalY)
	m.dist[idx] = 0
	m.marked[idx] = true
	m.computeTargetDistances(cm, []int{idx})
	return nil
}

func (m *mapGrid) computeTargetDistances(cm costmap.Costmap, queue []int) {
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		cx := idx % m.width
		cy := idx / m.width
		next := m.dist[idx] + 1
		for _, n := range [4][2]int{{cx - 1, cy}, {cx + 1, cy}, {cx, cy - 1}, {cx, cy + 1}} {
			nx, ny := n[0], n[1]
			if !m.inBounds(nx, ny) {
				continue
			}
			nidx := m.index(nx, ny)
			if m.marked[nidx] {
				continue
			}
			m.marked[nidx] = true
			if cm.IsLethalOrInflated(nx, ny) {
				m.dist[nidx] = m.obstacleCost()
				continue
			}
			m.dist[nidx] = next
			queue = append(queue, nidx)
		}
	}
}

// adjustPlanResolution inserts interpolated poses so no two consecutive plan poses
// are farther apart than the grid resolution.
func adjustPlanResolution(plan []spatialmath.Pose2D, resolution float64) []spatialmath.Pose2D {
	if len(plan) == 0 || resolution <= 0 {
		return plan
	}
	out := make([]spatialmath.Pose2D, 0, len(plan))
	out = append(out, plan[0])
	for i := 1; i < len(plan); i++ {
		prev, cur := plan[i-1], plan[i]
		if dist := prev.DistanceTo(cur); dist > resolution {
			steps := int(math.Ceil(dist / resolution))
			for s := 1; s < steps; s++ {
				f := float64(s) / float64(steps)
				out = append(out, spatialmath.Pose2D{
					X:     prev.X + (cur.X-prev.X)*f,
					Y:     prev.Y + (cur.Y-prev.Y)*f,
					Theta: cur.Theta,
				})
			}
		}
		out = append(out, cur)
	}
	return out
}

// mapGridCritic scores a trajectory by the propagated grid distance of its
// endpoint to a target set: the whole plan, or only the local goal. A nonzero
// forwardShift scores the point that far ahead of the endpoint along its heading
// instead, which is what the alignment critics do.
type mapGridCritic struct {
	name          string
	scale         float64
	cm            costmap.Costmap
	grid          *mapGrid
	localGoal     bool
	stopOnFailure bool
	forwardShift  float64
	targets       []spatialmath.Pose2D
}

func newMapGridCritic(name string, cm costmap.Costmap, localGoal, stopOnFailure bool) *mapGridCritic {
	w, h := cm.Size()
	return &mapGridCritic{
		name:          name,
		cm:            cm,
		grid:          newMapGrid(w, h),
		localGoal:     localGoal,
		stopOnFailure: stopOnFailure,
	}
}

func (c *mapGridCritic) Name() string {
	return c.name
}

func (c *mapGridCritic) Scale() float64 {
	return c.scale
}

func (c *mapGridCritic) SetScale(scale float64) {
	c.scale = scale
}

func (c *mapGridCritic) setForwardShift(d float64) {
	c.forwardShift = d
}

// setTargets replaces the poses the next Prepare seeds from. The critic keeps the
// slice; callers must not modify it afterward.
func (c *mapGridCritic) setTargets(plan []spatialmath.Pose2D) {
	c.targets = plan
}

func (c *mapGridCritic) Prepare() error {
	if len(c.targets) == 0 {
		return errors.Errorf("critic %q has no target poses", c.name)
	}
	if w, h := c.cm.Size(); w != c.grid.width || h != c.grid.height {
		c.grid.resize(w, h)
	}
	if c.localGoal {
		return c.grid.setLocalGoal(c.cm, c.targets)
	}
	return c.grid.setTargetCells(c.cm, c.targets)
}

func (c *mapGridCritic) Score(traj *Trajectory) float64 {
	end := traj.Endpoint()
	px, py := end.X, end.Y
	if c.forwardShift != 0 {
		px += c.forwardShift * math.Cos(end.Theta)
		py += c.forwardShift * math.Sin(end.Theta)
	}
	cx, cy, ok := costmap.WorldToMap(c.cm, px, py)
	if !ok {
		return c.failureCost(costOffGrid)
	}
	d := c.grid.distanceAt(cx, cy)
	switch d {
	case c.grid.obstacleCost():
		return c.failureCost(costObstacleCell)
	case c.grid.unreachableCost():
		return c.failureCost(costUnreachableCell)
	}
	return d
}

// failureCost converts a veto into a large finite penalty for critics configured
// to degrade rather than reject when their target is unusable.
func (c *mapGridCritic) failureCost(sentinel float64) float64 {
	if c.stopOnFailure {
		return sentinel
	}
	return c.grid.unreachableCost()
}
