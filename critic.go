package localplanner

// A Critic scores candidate trajectories against one objective. Prepare refreshes
// per-cycle state before scoring begins; Score must not mutate the trajectory.
type Critic interface {
	// Name identifies the critic in logs and diagnostics.
	Name() string

	// Scale is the weight applied to this critic's scores. A critic whose scale is
	// zero is skipped entirely, veto power included.
	Scale() float64
	SetScale(scale float64)

	// Prepare refreshes per-cycle state. A critic that fails to prepare is logged
	// and scores against whatever state it last held.
	Prepare() error

	// Score returns a non-negative cost, or a negative sentinel to reject the
	// trajectory outright.
	Score(traj *Trajectory) float64
}
