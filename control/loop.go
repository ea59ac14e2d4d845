// Package control runs a planner against a velocity-controlled base at a fixed
// rate. The loop owns one background goroutine: every tick it asks the planner
// for the next command and forwards it to the sink, stopping the base whenever
// no safe command exists.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// Controllable is the planner surface the loop drives once per tick.
type Controllable interface {
	ComputeVelocityCommand(ctx context.Context) (spatialmath.Velocity2D, error)
	IsGoalReached(ctx context.Context) bool
	ControllerFrequency() float64
}

// A CommandSink receives the loop's output: body-frame velocity setpoints while
// driving, and a stop once the goal is reached or no safe command exists.
type CommandSink interface {
	SetVelocity(ctx context.Context, linear, angular r3.Vector) error
	Stop(ctx context.Context) error
}

// A LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock substitutes the loop's wall clock, for tests.
func WithClock(c clock.Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// Loop calls the planner at its controller frequency and forwards each command
// to the sink. After the goal is reached it stops the base once and idles,
// resuming as soon as a new plan makes the goal check fail again.
type Loop struct {
	planner Controllable
	sink    CommandSink
	clock   clock.Clock
	logger  logging.Logger
	dt      time.Duration

	mu      sync.Mutex
	running bool

	// atGoal is touched only by the worker goroutine.
	atGoal bool

	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewLoop wires a planner to a command sink. The loop does not tick until Start.
func NewLoop(planner Controllable, sink CommandSink, logger logging.Logger, opts ...LoopOption) (*Loop, error) {
	if planner == nil || sink == nil {
		return nil, errors.New("a planner and a command sink are required")
	}
	freq := planner.ControllerFrequency()
	if freq <= 0 {
		return nil, errors.Errorf("controller frequency must be positive, got %v", freq)
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		planner:   planner,
		sink:      sink,
		clock:     clock.New(),
		logger:    logger,
		dt:        time.Duration(float64(time.Second) / freq),
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Period returns the tick interval derived from the planner's controller frequency.
func (l *Loop) Period() time.Duration {
	return l.dt
}

// Start launches the background worker. Starting twice, or after Close, is an
// error.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("control loop already running")
	}
	if l.cancelCtx.Err() != nil {
		return errors.New("control loop already closed")
	}
	l.running = true
	ticker := l.clock.Ticker(l.dt)
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-l.cancelCtx.Done():
				return
			case <-ticker.C:
				l.tick(l.cancelCtx)
			}
		}
	}, l.activeBackgroundWorkers.Done)
	l.logger.Infow("control loop started", "period", l.dt)
	return nil
}

// Close stops the worker, waits for it to exit, and stops the base so it is not
// left moving on the last command.
func (l *Loop) Close(ctx context.Context) error {
	l.mu.Lock()
	wasRunning := l.running
	l.running = false
	l.mu.Unlock()
	l.cancel()
	l.activeBackgroundWorkers.Wait()
	if !wasRunning {
		return nil
	}
	return l.sink.Stop(ctx)
}

func (l *Loop) tick(ctx context.Context) {
	if l.planner.IsGoalReached(ctx) {
		if !l.atGoal {
			l.atGoal = true
			l.logger.Info("goal reached, stopping the base")
			if err := l.sink.Stop(ctx); err != nil {
				l.logger.Warnw("could not stop the base", "error", err)
			}
		}
		return
	}
	l.atGoal = false

	cmd, err := l.planner.ComputeVelocityCommand(ctx)
	if err != nil {
		l.logger.Warnw("planning cycle failed, stopping the base", "error", err)
		if err := l.sink.Stop(ctx); err != nil {
			l.logger.Warnw("could not stop the base", "error", err)
		}
		return
	}
	if err := l.sink.SetVelocity(ctx, cmd.Linear(), cmd.Angular()); err != nil {
		l.logger.Warnw("could not command the base", "error", err)
	}
}
