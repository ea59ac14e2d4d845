package localplanner

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/localplanner/costmap"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// pruneDistance is how close a plan pose must be to the robot to survive pruning;
// everything ahead of the first such pose is kept.
const pruneDistance = 1.0

// A PlanTransform maps the stored global plan into the window used for one cycle
// of local planning.
type PlanTransform interface {
	TransformPlan(pose spatialmath.Pose2D, plan []spatialmath.Pose2D) ([]spatialmath.Pose2D, error)
}

// gridWindowTransform keeps the contiguous run of plan poses inside the costmap
// extent around the robot: leading poses outside the window are skipped, then
// poses are taken until the plan leaves the window again.
type gridWindowTransform struct {
	cm costmap.Costmap
}

// NewGridWindowTransform clips plans to the extent of the given grid.
func NewGridWindowTransform(cm costmap.Costmap) PlanTransform {
	return &gridWindowTransform{cm: cm}
}

func (t *gridWindowTransform) TransformPlan(
	pose spatialmath.Pose2D,
	plan []spatialmath.Pose2D,
) ([]spatialmath.Pose2D, error) {
	w, h := t.cm.Size()
	half := math.Max(float64(w), float64(h)) * t.cm.Resolution() / 2
	sqThreshold := half * half

	i := 0
	for i < len(plan) && sqDist(pose, plan[i]) > sqThreshold {
		i++
	}
	out := make([]spatialmath.Pose2D, 0, len(plan)-i)
	for i < len(plan) && sqDist(pose, plan[i]) <= sqThreshold {
		out = append(out, plan[i])
		i++
	}
	return out, nil
}

func sqDist(a, b spatialmath.Pose2D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// PlanKeeper owns the current global plan, tags each accepted plan with an
// identity, and serves the local window of it.
type PlanKeeper struct {
	logger    logging.Logger
	transform PlanTransform
	plan      []spatialmath.Pose2D
	id        uuid.UUID
}

func NewPlanKeeper(transform PlanTransform, logger logging.Logger) *PlanKeeper {
	return &PlanKeeper{logger: logger, transform: transform}
}

// SetPlan replaces the stored plan. The keeper copies the poses; the final pose is
// the goal.
func (k *PlanKeeper) SetPlan(plan []spatialmath.Pose2D) error {
	if len(plan) == 0 {
		return errors.New("plan must contain at least one pose")
	}
	k.plan = append([]spatialmath.Pose2D(nil), plan...)
	k.id = uuid.New()
	return nil
}

// HasPlan reports whether a plan has been accepted.
func (k *PlanKeeper) HasPlan() bool {
	return len(k.plan) > 0
}

// PlanID identifies the currently stored plan.
func (k *PlanKeeper) PlanID() uuid.UUID {
	return k.id
}

// Plan returns the stored plan. Callers must not modify it.
func (k *PlanKeeper) Plan() []spatialmath.Pose2D {
	return k.plan
}

// Goal returns the stored plan's final pose.
func (k *PlanKeeper) Goal() (spatialmath.Pose2D, error) {
	if len(k.plan) == 0 {
		return spatialmath.Pose2D{}, ErrNoPlan
	}
	return k.plan[len(k.plan)-1], nil
}

// LocalPlan returns the window of the plan around the given pose.
func (k *PlanKeeper) LocalPlan(pose spatialmath.Pose2D) ([]spatialmath.Pose2D, error) {
	if len(k.plan) == 0 {
		return nil, ErrNoPlan
	}
	local, err := k.transform.TransformPlan(pose, k.plan)
	if err != nil {
		return nil, errors.Wrap(err, "could not transform plan")
	}
	if len(local) == 0 {
		return nil, ErrEmptyLocalPlan
	}
	return local, nil
}

// Prune drops leading plan poses the robot has moved past, stopping at the first
// pose still within pruneDistance of it.
func (k *PlanKeeper) Prune(pose spatialmath.Pose2D) {
	cut := 0
	for cut < len(k.plan) && pose.DistanceTo(k.plan[cut]) > pruneDistance {
		cut++
	}
	if cut == 0 {
		return
	}
	k.plan = k.plan[cut:]
	k.logger.Debugw("pruned passed plan poses", "dropped", cut, "remaining", len(k.plan))
}
