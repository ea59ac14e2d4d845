package control

import (
	"context"
	"sync"
	"testing"
	"time"

	clk "github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// scriptedPlanner is a Controllable whose answers the test sets directly. It
// signals every tick through a channel so tests can step the mock clock
// without sleeping.
type scriptedPlanner struct {
	mu     sync.Mutex
	freq   float64
	atGoal bool
	err    error
	cmd    spatialmath.Velocity2D
	cycles int
	ticks  chan struct{}
}

func newScriptedPlanner() *scriptedPlanner {
	return &scriptedPlanner{freq: 20, ticks: make(chan struct{}, 16)}
}

func (p *scriptedPlanner) ComputeVelocityCommand(ctx context.Context) (spatialmath.Velocity2D, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycles++
	if p.err != nil {
		return spatialmath.Velocity2D{}, p.err
	}
	return p.cmd, nil
}

func (p *scriptedPlanner) IsGoalReached(ctx context.Context) bool {
	p.mu.Lock()
	v := p.atGoal
	p.mu.Unlock()
	p.ticks <- struct{}{}
	return v
}

func (p *scriptedPlanner) ControllerFrequency() float64 {
	return p.freq
}

func (p *scriptedPlanner) set(fn func(*scriptedPlanner)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *scriptedPlanner) cycleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles
}

// recordingSink captures every command the loop forwards and signals each call.
type recordingSink struct {
	mu      sync.Mutex
	linear  []r3.Vector
	angular []r3.Vector
	stops   int
	velErr  error
	stopErr error
	calls   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{calls: make(chan struct{}, 16)}
}

func (s *recordingSink) SetVelocity(ctx context.Context, linear, angular r3.Vector) error {
	s.mu.Lock()
	s.linear = append(s.linear, linear)
	s.angular = append(s.angular, angular)
	err := s.velErr
	s.mu.Unlock()
	s.calls <- struct{}{}
	return err
}

func (s *recordingSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stops++
	err := s.stopErr
	s.mu.Unlock()
	s.calls <- struct{}{}
	return err
}

func (s *recordingSink) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *recordingSink) commands() ([]r3.Vector, []r3.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]r3.Vector{}, s.linear...), append([]r3.Vector{}, s.angular...)
}

// step advances the clock one period and blocks until the loop takes the tick.
func step(mc *clk.Mock, l *Loop, p *scriptedPlanner) {
	mc.Add(l.Period())
	<-p.ticks
}

func TestNewLoopValidation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	planner := newScriptedPlanner()
	sink := newRecordingSink()

	_, err := NewLoop(nil, sink, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewLoop(planner, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	planner.freq = 0
	_, err = NewLoop(planner, sink, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "controller frequency")

	planner.freq = 20
	loop, err := NewLoop(planner, sink, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Period(), test.ShouldEqual, 50*time.Millisecond)

	// closing a loop that never started does not touch the base
	test.That(t, loop.Close(context.Background()), test.ShouldBeNil)
	test.That(t, sink.stopCount(), test.ShouldEqual, 0)
}

func TestLoopDrivesEachTick(t *testing.T) {
	logger := logging.NewTestLogger(t)
	mockClock := clk.NewMock()
	planner := newScriptedPlanner()
	planner.set(func(p *scriptedPlanner) { p.cmd = spatialmath.Velocity2D{X: 0.25, Theta: 0.1} })
	sink := newRecordingSink()
	loop, err := NewLoop(planner, sink, logger, WithClock(mockClock))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, loop.Start(), test.ShouldBeNil)
	test.That(t, loop.Start(), test.ShouldNotBeNil)

	for i := 0; i < 3; i++ {
		step(mockClock, loop, planner)
		<-sink.calls
	}
	linear, angular := sink.commands()
	test.That(t, linear, test.ShouldHaveLength, 3)
	test.That(t, linear[2].X, test.ShouldEqual, 0.25)
	test.That(t, linear[2].Y, test.ShouldEqual, 0.0)
	test.That(t, angular[2].Z, test.ShouldEqual, 0.1)
	test.That(t, planner.cycleCount(), test.ShouldEqual, 3)
	test.That(t, sink.stopCount(), test.ShouldEqual, 0)

	test.That(t, loop.Close(context.Background()), test.ShouldBeNil)
	test.That(t, sink.stopCount(), test.ShouldEqual, 1)
	test.That(t, loop.Start(), test.ShouldNotBeNil)
}

func TestLoopStopsAtGoalAndResumes(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	mockClock := clk.NewMock()
	planner := newScriptedPlanner()
	planner.set(func(p *scriptedPlanner) { p.cmd = spatialmath.Velocity2D{X: 0.2} })
	sink := newRecordingSink()
	loop, err := NewLoop(planner, sink, logger, WithClock(mockClock))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Start(), test.ShouldBeNil)
	defer func() {
		test.That(t, loop.Close(context.Background()), test.ShouldBeNil)
	}()

	step(mockClock, loop, planner)
	<-sink.calls

	planner.set(func(p *scriptedPlanner) { p.atGoal = true })
	step(mockClock, loop, planner)
	<-sink.calls
	test.That(t, sink.stopCount(), test.ShouldEqual, 1)

	// idle ticks neither stop again nor run the planner
	step(mockClock, loop, planner)
	step(mockClock, loop, planner)

	// a new plan makes the goal check fail and driving resumes
	planner.set(func(p *scriptedPlanner) { p.atGoal = false })
	step(mockClock, loop, planner)
	<-sink.calls

	test.That(t, sink.stopCount(), test.ShouldEqual, 1)
	linear, _ := sink.commands()
	test.That(t, linear, test.ShouldHaveLength, 2)
	test.That(t, planner.cycleCount(), test.ShouldEqual, 2)
	test.That(t, observed.FilterMessageSnippet("goal reached").Len(), test.ShouldEqual, 1)
}

func TestLoopStopsBaseOnPlanningFailure(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	mockClock := clk.NewMock()
	planner := newScriptedPlanner()
	planner.set(func(p *scriptedPlanner) { p.err = errors.New("no admissible trajectory") })
	sink := newRecordingSink()
	loop, err := NewLoop(planner, sink, logger, WithClock(mockClock))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Start(), test.ShouldBeNil)

	step(mockClock, loop, planner)
	<-sink.calls
	test.That(t, sink.stopCount(), test.ShouldEqual, 1)

	// the loop keeps cycling and recovers once planning does
	planner.set(func(p *scriptedPlanner) { p.err = nil; p.cmd = spatialmath.Velocity2D{X: 0.1} })
	step(mockClock, loop, planner)
	<-sink.calls

	linear, _ := sink.commands()
	test.That(t, linear, test.ShouldHaveLength, 1)
	test.That(t, linear[0].X, test.ShouldEqual, 0.1)
	test.That(t, planner.cycleCount(), test.ShouldEqual, 2)
	test.That(t, observed.FilterMessageSnippet("planning cycle failed").Len(), test.ShouldEqual, 1)

	test.That(t, loop.Close(context.Background()), test.ShouldBeNil)
	test.That(t, sink.stopCount(), test.ShouldEqual, 2)
}

func TestLoopToleratesSinkFailures(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	mockClock := clk.NewMock()
	planner := newScriptedPlanner()
	planner.set(func(p *scriptedPlanner) { p.cmd = spatialmath.Velocity2D{X: 0.2} })
	sink := newRecordingSink()
	sink.velErr = errors.New("bus off")
	sink.stopErr = errors.New("bus off")
	loop, err := NewLoop(planner, sink, logger, WithClock(mockClock))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Start(), test.ShouldBeNil)

	step(mockClock, loop, planner)
	<-sink.calls
	step(mockClock, loop, planner)
	<-sink.calls
	test.That(t, planner.cycleCount(), test.ShouldEqual, 2)
	test.That(t, observed.FilterMessageSnippet("could not command the base").Len(), test.ShouldEqual, 2)

	planner.set(func(p *scriptedPlanner) { p.atGoal = true })
	step(mockClock, loop, planner)
	<-sink.calls
	test.That(t, observed.FilterMessageSnippet("could not stop the base").Len(), test.ShouldEqual, 1)

	sink.stopErr = nil
	test.That(t, loop.Close(context.Background()), test.ShouldBeNil)
}
