package localplanner

import "github.com/pkg/errors"

var (
	// ErrNoPlan is returned by command computation before any plan has been set.
	ErrNoPlan = errors.New("no global plan has been set")

	// ErrEmptyLocalPlan is returned when no portion of the global plan lies within
	// the local window around the robot.
	ErrEmptyLocalPlan = errors.New("transformed plan is empty")

	// ErrInfeasible is returned when every sampled trajectory was rejected by the
	// critics. The caller decides how to recover; the planner's state is unchanged
	// and the next cycle searches again.
	ErrInfeasible = errors.New("no feasible trajectory found")

	// ErrTrajectoryRejected is returned by CheckTrajectory when the probe sample
	// fails scoring.
	ErrTrajectoryRejected = errors.New("trajectory rejected")
)
