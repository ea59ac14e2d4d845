// Package localplanner computes short-horizon velocity commands that move a
// mobile base along a reference path through an occupancy grid. Each control
// cycle it forward-simulates the velocity candidates reachable under the robot's
// acceleration limits, scores them against a set of critics, and returns the
// body-frame velocity of the cheapest candidate every critic accepts. Near the
// goal a latched controller takes over to stop the base and rotate it in place
// to the goal heading.
package localplanner

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/localplanner/costmap"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// PoseSource supplies the robot pose in the planning frame.
type PoseSource interface {
	CurrentPose(ctx context.Context) (spatialmath.Pose2D, error)
}

// VelocitySource supplies the robot's current body-frame velocity.
type VelocitySource interface {
	CurrentVelocity(ctx context.Context) (spatialmath.Velocity2D, error)
}

// Stats counts planning cycle outcomes since construction.
type Stats struct {
	// Cycles is the number of command computations attempted.
	Cycles int64
	// Failed counts cycles that returned an error.
	Failed int64
	// Infeasible counts cycles where every candidate was rejected.
	Infeasible int64
}

type cycleCounters struct {
	cycles     atomic.Int64
	failed     atomic.Int64
	infeasible atomic.Int64
}

// An Option configures a Planner beyond its required collaborators.
type Option func(*Planner)

// WithVisualizer routes diagnostic emissions to v instead of dropping them.
func WithVisualizer(v Visualizer) Option {
	return func(p *Planner) { p.viz = v }
}

// WithPlanTransform replaces the default grid-extent window transform.
func WithPlanTransform(t PlanTransform) Option {
	return func(p *Planner) { p.transform = t }
}

// Planner is one local planner instance. Methods are safe for concurrent use: a
// command computation runs under a single lock, so reconfiguration can never tear
// the parameters a cycle sees.
type Planner struct {
	mu     sync.Mutex
	logger logging.Logger
	cm     costmap.Costmap
	poses  PoseSource
	vels   VelocitySource
	viz    Visualizer

	conf                 Config
	limits               Limits
	simPeriod            float64
	counts               SampleCounts
	forwardPointDistance float64
	cheatFactor          float64
	alignScale           float64

	transform PlanTransform
	keeper    *PlanKeeper
	gen       *Generator
	scored    *ScoredSamplingPlanner
	latch     *StopRotateController

	osc             *oscillationCritic
	obstacle        *obstacleCritic
	pathCritic      *mapGridCritic
	goalCritic      *mapGridCritic
	goalFrontCritic *mapGridCritic
	alignCritic     *mapGridCritic

	lastBest Trajectory
	counters cycleCounters
}

// NewPlanner assembles a planner over the given grid and state sources. The config
// is validated and copied; later changes to the caller's copy have no effect.
func NewPlanner(
	conf *Config,
	cm costmap.Costmap,
	poses PoseSource,
	vels VelocitySource,
	logger logging.Logger,
	opts ...Option,
) (*Planner, error) {
	if cm == nil {
		return nil, errors.New("a costmap is required")
	}
	if poses == nil || vels == nil {
		return nil, errors.New("pose and velocity sources are required")
	}
	p := &Planner{
		logger:          logger,
		cm:              cm,
		poses:           poses,
		vels:            vels,
		viz:             NoopVisualizer{},
		gen:             NewGenerator(),
		latch:           NewStopRotateController(logger.Sublogger("latch")),
		osc:             newOscillationCritic(logger.Sublogger("oscillation")),
		obstacle:        newObstacleCritic(cm),
		pathCritic:      newMapGridCritic("path_distance", cm, false, true),
		goalCritic:      newMapGridCritic("goal_distance", cm, true, true),
		goalFrontCritic: newMapGridCritic("goal_front", cm, true, false),
		alignCritic:     newMapGridCritic("path_alignment", cm, false, false),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.transform == nil {
		p.transform = NewGridWindowTransform(cm)
	}
	p.keeper = NewPlanKeeper(p.transform, logger.Sublogger("plan"))
	// the vetoing critics run before the distance critics
	critics := []Critic{p.osc, p.obstacle, p.goalFrontCritic, p.alignCritic, p.pathCritic, p.goalCritic}
	p.scored = NewScoredSamplingPlanner(p.gen, critics, logger.Sublogger("search"))
	if err := p.applyConfig(conf); err != nil {
		return nil, err
	}
	p.lastBest = Trajectory{Cost: costUnscored}
	return p, nil
}

// Reconfigure validates and atomically swaps the planner's parameters. A command
// computation in flight finishes under the old parameters.
func (p *Planner) Reconfigure(conf *Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applyConfig(conf)
}

func (p *Planner) applyConfig(conf *Config) error {
	if err := conf.Validate(""); err != nil {
		return err
	}
	footprint, err := conf.footprintPoints()
	if err != nil {
		return err
	}
	counts := SampleCounts{
		VX:     p.coerceSampleCount("vx_samples", conf.VxSamples),
		VY:     p.coerceSampleCount("vy_samples", conf.VySamples),
		VTheta: p.coerceSampleCount("vth_samples", conf.VthSamples),
	}

	p.conf = *conf
	p.limits = conf.Limits()
	p.simPeriod = conf.simPeriod()
	p.counts = counts
	p.forwardPointDistance = conf.ForwardPointDistance
	p.cheatFactor = conf.CheatFactor

	scales := deriveCriticScales(conf, p.cm.Resolution())
	p.alignScale = scales.align
	p.pathCritic.SetScale(scales.path)
	p.goalCritic.SetScale(scales.goal)
	p.goalFrontCritic.SetScale(scales.goalFront)
	p.alignCritic.SetScale(scales.align)
	p.obstacle.SetScale(scales.obstacle)
	p.goalFrontCritic.setForwardShift(conf.ForwardPointDistance)
	p.alignCritic.setForwardShift(conf.ForwardPointDistance)
	p.obstacle.setParams(
		conf.MaxTransVel, conf.ScalingSpeed, conf.MaxScalingFactor, conf.StopTimeBuffer,
		conf.SumObstacleScores, footprint,
	)
	p.osc.setParams(
		conf.OscillationResetDist, conf.OscillationResetAngle,
		conf.MinTransVel, conf.TransStoppedVel, conf.RotStoppedVel,
	)
	p.gen.SetParameters(
		conf.SimTime, conf.SimGranularity, conf.AngularSimGranularity,
		p.simPeriod, conf.SampleAccelerations,
	)
	p.logger.Infow("planner configured",
		"controllerFrequency", conf.ControllerFrequency,
		"simTime", conf.SimTime,
		"samples", counts,
		"sampleAccelerations", conf.SampleAccelerations,
	)
	return nil
}

func (p *Planner) coerceSampleCount(name string, count int) int {
	if count >= 1 {
		return count
	}
	p.logger.Warnf("%s must be at least 1, got %d; using 1", name, count)
	return 1
}

// SetPlan replaces the plan the planner follows and resets per-plan state: the
// final-approach latch and the oscillation guards.
func (p *Planner) SetPlan(plan []spatialmath.Pose2D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.keeper.SetPlan(plan); err != nil {
		return err
	}
	p.latch.Reset()
	p.osc.Reset()
	p.lastBest = Trajectory{Cost: costUnscored}
	goal, _ := p.keeper.Goal()
	p.logger.Infow("accepted new plan",
		"id", p.keeper.PlanID(),
		"poses", len(plan),
		"goal", goal.String(),
	)
	return nil
}

// CurrentPlanID identifies the plan the planner is following; it changes with
// every SetPlan.
func (p *Planner) CurrentPlanID() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keeper.PlanID()
}

// Limits returns the kinodynamic limits the planner currently runs under.
func (p *Planner) Limits() Limits {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits
}

// ControllerFrequency returns the configured command rate in Hz.
func (p *Planner) ControllerFrequency() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conf.ControllerFrequency
}

// Stats returns cycle counters accumulated since construction.
func (p *Planner) Stats() Stats {
	return Stats{
		Cycles:     p.counters.cycles.Load(),
		Failed:     p.counters.failed.Load(),
		Infeasible: p.counters.infeasible.Load(),
	}
}

// LastTrajectory returns the most recent search result. Its cost is negative when
// the last cycle found nothing, or when no search has run yet.
func (p *Planner) LastTrajectory() Trajectory {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBest
}

// IsPositionReached reports whether the robot position satisfies the goal
// tolerance, or already did once this plan. It never mutates planner state.
func (p *Planner) IsPositionReached(ctx context.Context) bool {
	pose, err := p.poses.CurrentPose(ctx)
	if err != nil {
		p.logger.Warnw("could not read pose for position check", "error", err)
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	goal, err := p.keeper.Goal()
	if err != nil {
		return false
	}
	return p.latch.PositionReached(pose, goal, &p.limits)
}

// IsGoalReached reports whether position, heading, and stopped velocity all hold.
// It never mutates planner state.
func (p *Planner) IsGoalReached(ctx context.Context) bool {
	pose, err := p.poses.CurrentPose(ctx)
	if err != nil {
		p.logger.Warnw("could not read pose for goal check", "error", err)
		return false
	}
	velocity, err := p.vels.CurrentVelocity(ctx)
	if err != nil {
		p.logger.Warnw("could not read velocity for goal check", "error", err)
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	goal, err := p.keeper.Goal()
	if err != nil {
		return false
	}
	return p.latch.GoalReached(pose, goal, velocity, &p.limits)
}

// ComputeVelocityCommand runs one planning cycle and returns the body-frame
// velocity to command. A failed cycle returns a zero velocity alongside the error
// and leaves the stored plan, latch, and oscillation locks unchanged.
func (p *Planner) ComputeVelocityCommand(ctx context.Context) (spatialmath.Velocity2D, error) {
	p.counters.cycles.Inc()
	pose, err := p.poses.CurrentPose(ctx)
	if err != nil {
		p.counters.failed.Inc()
		return spatialmath.Velocity2D{}, errors.Wrap(err, "could not read current pose")
	}
	velocity, err := p.vels.CurrentVelocity(ctx)
	if err != nil {
		p.counters.failed.Inc()
		return spatialmath.Velocity2D{}, errors.Wrap(err, "could not read current velocity")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	localPlan, err := p.keeper.LocalPlan(pose)
	if err != nil {
		p.counters.failed.Inc()
		return spatialmath.Velocity2D{}, err
	}
	if p.limits.PrunePlan {
		p.keeper.Prune(pose)
	}
	goal, err := p.keeper.Goal()
	if err != nil {
		p.counters.failed.Inc()
		return spatialmath.Velocity2D{}, err
	}
	p.updatePlanAndLocalCosts(pose, localPlan)

	if p.latch.PositionReached(pose, goal, &p.limits) {
		// final approach: stop, then rotate in place. Guards from the driving
		// phase no longer apply.
		p.osc.Reset()
		p.scored.prepareCritics()
		cmd := p.latch.ComputeCommand(pose, goal, velocity, &p.limits, p.simPeriod, p.checkSample)
		p.viz.PublishGlobalPlan(localPlan)
		p.viz.PublishLocalPlan(nil)
		return cmd, nil
	}

	p.gen.Initialize(pose, velocity, goal, &p.limits, p.counts)
	best, explored := p.scored.FindBestTrajectory(p.conf.PublishTrajectoryCloud)
	if p.conf.PublishTrajectoryCloud {
		p.viz.PublishTrajectoryCloud(explored)
	}
	if p.conf.PublishCostGrid {
		p.viz.PublishCostCloud(p.cellCostsLocked())
	}
	p.osc.update(pose, &best)
	p.lastBest = best

	p.viz.PublishGlobalPlan(localPlan)
	if best.Cost < 0 {
		p.counters.failed.Inc()
		p.counters.infeasible.Inc()
		p.viz.PublishLocalPlan(nil)
		return spatialmath.Velocity2D{}, errors.Wrapf(ErrInfeasible, "best candidate cost %.1f", best.Cost)
	}
	p.viz.PublishLocalPlan(best.Poses())
	return best.Velocity, nil
}

// CheckTrajectory probes whether one velocity sample from the given state would
// survive scoring. It clears the oscillation guards and refreshes the critics
// against the current plan window before scoring.
func (p *Planner) CheckTrajectory(pose spatialmath.Pose2D, velocity, sample spatialmath.Velocity2D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.osc.Reset()
	p.scored.prepareCritics()
	traj, ok := p.gen.Generate(pose, velocity, sample, &p.limits)
	if !ok {
		return errors.Wrapf(ErrTrajectoryRejected, "sample %s is outside the admissible window", sample.String())
	}
	if cost := p.scored.ScoreTrajectory(traj, -1); cost < 0 {
		return errors.Wrapf(ErrTrajectoryRejected, "sample %s scored %.1f", sample.String(), cost)
	}
	return nil
}

// checkSample is the TrajectoryChecker the latched controller vets its stop and
// rotate commands with. Callers hold p.mu.
func (p *Planner) checkSample(pose spatialmath.Pose2D, velocity, sample spatialmath.Velocity2D) bool {
	traj, ok := p.gen.Generate(pose, velocity, sample, &p.limits)
	if !ok {
		return false
	}
	return p.scored.ScoreTrajectory(traj, -1) >= 0
}

// updatePlanAndLocalCosts points every distance critic at this cycle's plan window
// and gates heading alignment off near the local goal, where chasing a forward
// point destabilizes the approach.
func (p *Planner) updatePlanAndLocalCosts(pose spatialmath.Pose2D, localPlan []spatialmath.Pose2D) {
	p.pathCritic.setTargets(localPlan)
	p.goalCritic.setTargets(localPlan)
	p.alignCritic.setTargets(localPlan)

	localGoal := localPlan[len(localPlan)-1]

	// the goal-front critic aims at a point projected ahead of the local goal
	// along the robot-to-goal bearing
	angle := pose.HeadingTo(localGoal)
	front := append([]spatialmath.Pose2D(nil), localPlan...)
	front[len(front)-1] = spatialmath.Pose2D{
		X:     localGoal.X + p.forwardPointDistance*math.Cos(angle),
		Y:     localGoal.Y + p.forwardPointDistance*math.Sin(angle),
		Theta: localGoal.Theta,
	}
	p.goalFrontCritic.setTargets(front)

	threshold := p.forwardPointDistance * p.cheatFactor
	if sqDist(pose, localGoal) > threshold*threshold {
		p.alignCritic.SetScale(p.alignScale)
	} else {
		p.alignCritic.SetScale(0)
	}
}

func (p *Planner) cellCostsLocked() []CellCost {
	w, h := p.cm.Size()
	cells := make([]CellCost, 0, w*h)
	for cy := 0; cy < h; cy++ {
		for cx := 0; cx < w; cx++ {
			if cell, ok := p.cellCostLocked(cx, cy); ok {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

// CellCost returns the cost breakdown of one grid cell using the distance fields
// built by the most recent planning cycle.
func (p *Planner) CellCost(cellX, cellY int) (CellCost, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, h := p.cm.Size()
	if cellX < 0 || cellX >= w || cellY < 0 || cellY >= h {
		return CellCost{}, errors.Errorf("cell (%d, %d) is outside the %dx%d grid", cellX, cellY, w, h)
	}
	cell, ok := p.cellCostLocked(cellX, cellY)
	if !ok {
		return CellCost{}, errors.Errorf("cell (%d, %d) has no valid cost", cellX, cellY)
	}
	return cell, nil
}

// cellCostLocked reports false for cells the path or goal field marks invalid and
// for occupied cells. Goal-front and alignment distances are reported raw; their
// sentinels read as large distances.
func (p *Planner) cellCostLocked(cx, cy int) (CellCost, bool) {
	pathD := p.pathCritic.grid.distanceAt(cx, cy)
	goalD := p.goalCritic.grid.distanceAt(cx, cy)
	if pathD >= p.pathCritic.grid.obstacleCost() || goalD >= p.goalCritic.grid.obstacleCost() {
		return CellCost{}, false
	}
	occ := p.cm.CostAt(cx, cy)
	if occ >= costmap.InscribedObstacle {
		return CellCost{}, false
	}
	frontD := p.goalFrontCritic.grid.distanceAt(cx, cy)
	alignD := p.alignCritic.grid.distanceAt(cx, cy)
	wx, wy := costmap.MapToWorld(p.cm, cx, cy)
	total := p.pathCritic.Scale()*pathD +
		p.goalCritic.Scale()*goalD +
		p.goalFrontCritic.Scale()*frontD +
		p.alignCritic.Scale()*alignD +
		p.obstacle.Scale()*float64(occ)
	return CellCost{
		CellX:             cx,
		CellY:             cy,
		WorldX:            wx,
		WorldY:            wy,
		Occupancy:         occ,
		PathDistance:      pathD,
		GoalDistance:      goalD,
		GoalFrontDistance: frontD,
		AlignmentDistance: alignD,
		Total:             total,
	}, true
}
