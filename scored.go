package localplanner

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localplanner/logging"
)

// ScoredSamplingPlanner searches a generator's candidates for the cheapest
// trajectory accepted by every critic. Critics run in their configured order and
// scoring cuts off early once a candidate's running sum is already worse than the
// best found so far.
type ScoredSamplingPlanner struct {
	logger  logging.Logger
	gen     *Generator
	critics []Critic
}

// NewScoredSamplingPlanner returns a search over the given generator. The critic
// order is the order vetoes and scores apply in.
func NewScoredSamplingPlanner(gen *Generator, critics []Critic, logger logging.Logger) *ScoredSamplingPlanner {
	return &ScoredSamplingPlanner{logger: logger, gen: gen, critics: critics}
}

// ScoreTrajectory runs the critics over one candidate. The first negative critic
// score rejects the candidate and is returned as-is; non-negative scores are
// weighted by the critic's scale and summed. A positive bestCost stops scoring
// once the sum exceeds it; a negative bestCost disables the cutoff.
func (p *ScoredSamplingPlanner) ScoreTrajectory(traj *Trajectory, bestCost float64) float64 {
	total := 0.0
	for _, critic := range p.critics {
		scale := critic.Scale()
		if scale == 0 {
			continue
		}
		cost := critic.Score(traj)
		if cost < 0 {
			return cost
		}
		total += cost * scale
		if bestCost > 0 && total > bestCost {
			// already worse than the best candidate
			break
		}
	}
	return total
}

// FindBestTrajectory prepares the critics, exhausts the generator, and returns the
// first minimal-cost candidate. The returned trajectory's cost is negative when no
// candidate was feasible. When collectExplored is set every scored candidate is
// returned as well, rejected ones included.
func (p *ScoredSamplingPlanner) FindBestTrajectory(collectExplored bool) (Trajectory, []Trajectory) {
	p.prepareCritics()
	best := Trajectory{Cost: costUnscored}
	var explored []Trajectory
	examined := 0
	debug := p.logger.GetLevel() == logging.DEBUG
	var feasibleCosts []float64
	for p.gen.HasNext() {
		traj, ok := p.gen.Next()
		if !ok {
			break
		}
		examined++
		cost := p.ScoreTrajectory(traj, best.Cost)
		traj.Cost = cost
		if collectExplored {
			explored = append(explored, *traj)
		}
		if cost < 0 {
			continue
		}
		if debug {
			feasibleCosts = append(feasibleCosts, cost)
		}
		if best.Cost < 0 || cost < best.Cost {
			best = *traj
		}
	}
	if debug {
		p.logSearchSummary(examined, feasibleCosts, best.Cost)
	}
	return best, explored
}

// prepareCritics refreshes every active critic. Failures are logged and left to
// surface through that critic's own scores.
func (p *ScoredSamplingPlanner) prepareCritics() {
	var errs error
	for _, critic := range p.critics {
		if critic.Scale() == 0 {
			continue
		}
		if err := critic.Prepare(); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "critic %q", critic.Name()))
		}
	}
	if errs != nil {
		p.logger.Warnw("some critics failed to prepare", "error", errs)
	}
}

func (p *ScoredSamplingPlanner) logSearchSummary(examined int, feasibleCosts []float64, bestCost float64) {
	if len(feasibleCosts) == 0 {
		p.logger.Debugw("trajectory search found nothing feasible", "examined", examined)
		return
	}
	meanCost, _ := stats.Mean(feasibleCosts)
	maxCost, _ := stats.Max(feasibleCosts)
	p.logger.Debugw("trajectory search finished",
		"examined", examined,
		"feasible", len(feasibleCosts),
		"bestCost", bestCost,
		"meanCost", meanCost,
		"maxCost", maxCost,
	)
}
