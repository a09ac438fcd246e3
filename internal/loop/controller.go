// Package loop runs the fixed-rate frame loop.
//
// A Controller drives one worker goroutine through repeated cycles: acquire
// the render target, advance the simulation, render, pace the cycle to the
// target period (sleeping on surplus, catching up on deficit), release the
// target and update the frame statistics.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"grow/internal/clock"
	"grow/internal/graphics"
	"grow/internal/pacing"
	"grow/internal/stats"
)

// Simulation advances the world by one fixed step.
type Simulation interface {
	Advance() error
}

// Renderer draws the current world state. It is never called with a nil canvas.
type Renderer interface {
	RenderFrame(canvas graphics.Canvas) error
}

// StatsPublisher receives the formatted average rate at every stats boundary.
type StatsPublisher interface {
	PublishStats(rate string)
}

// Observer is notified from the worker goroutine after every cycle and every
// stats report. Implementations must not block.
type Observer interface {
	ObserveCycle(outcome CycleOutcome)
	ObserveReport(report stats.Report)
}

// CycleOutcome describes one completed cycle.
type CycleOutcome struct {
	Work     time.Duration
	Budget   time.Duration // negative on overrun, after catch-up
	Sleep    time.Duration
	Skipped  int
	Rendered bool
}

// Config holds the loop parameters. It is fixed at construction.
type Config struct {
	TargetFPS       int
	MaxCatchUpSteps int
	StatInterval    time.Duration
	StatsWindowSize int
}

// DefaultConfig returns 50 FPS, 5 catch-up steps, 1s stats over 10 samples.
func DefaultConfig() Config {
	return Config{
		TargetFPS:       pacing.DefaultTargetFPS,
		MaxCatchUpSteps: pacing.DefaultMaxCatchUpSteps,
		StatInterval:    stats.DefaultInterval,
		StatsWindowSize: stats.DefaultWindowSize,
	}
}

// State is the lifecycle state of a Controller.
type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces the system clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithPublisher sets where the formatted rate goes at each stats boundary.
func WithPublisher(p StatsPublisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// Controller owns the frame loop worker.
type Controller struct {
	surface   graphics.Surface
	sim       Simulation
	renderer  Renderer
	publisher StatsPublisher
	observers []Observer

	pacer  pacing.Pacer
	stats  *stats.Collector
	clock  clock.Clock
	logger *zap.Logger

	state atomic.Int32

	// surfaceMu is held from acquire to release of the render target
	surfaceMu sync.Mutex

	// guards the per-run channels and the exit error
	mu      sync.Mutex
	stopCh  chan struct{}
	done    chan struct{}
	err     error
	stopRun context.CancelFunc

	wake chan struct{}
}

// New creates a stopped controller.
func New(surface graphics.Surface, sim Simulation, renderer Renderer, cfg Config, opts ...Option) (*Controller, error) {
	if surface == nil {
		return nil, errors.New("loop: surface is required")
	}
	if sim == nil {
		return nil, errors.New("loop: simulation is required")
	}
	if renderer == nil {
		return nil, errors.New("loop: renderer is required")
	}

	pacer, err := pacing.New(cfg.TargetFPS, cfg.MaxCatchUpSteps)
	if err != nil {
		return nil, fmt.Errorf("loop: %w", err)
	}

	c := &Controller{
		surface:  surface,
		sim:      sim,
		renderer: renderer,
		pacer:    pacer,
		clock:    clock.System,
		logger:   zap.NewNop(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.stats, err = stats.NewCollector(stats.Config{
		Interval:   cfg.StatInterval,
		WindowSize: cfg.StatsWindowSize,
	}, c.clock)
	if err != nil {
		return nil, fmt.Errorf("loop: %w", err)
	}

	return c, nil
}

// Start launches the worker goroutine.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		return ErrAlreadyRunning
	}

	// Stop cancels runCtx so a blocked acquire of the render target returns
	runCtx, stopRun := context.WithCancel(ctx)

	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.err = nil
	c.stopRun = stopRun

	// drop a stale wake left over from a previous run
	select {
	case <-c.wake:
	default:
	}

	c.stats.Reset()

	c.logger.Info("Frame loop starting",
		zap.Duration("period", c.pacer.Period()),
		zap.Int("max_catch_up", c.pacer.MaxCatchUpSteps()))

	go c.run(runCtx, stopRun, c.stopCh, c.done)

	return nil
}

// Run starts the loop and blocks until it exits.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Wait()
}

// Stop asks the worker to exit after the cycle in flight. A pending pacing
// sleep or render target acquisition ends early. Calling Stop more than once
// has no further effect.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		close(c.stopCh)
		c.stopRun()
	}
}

// Wait blocks until the worker has exited and returns the error that ended
// it, if any. It returns nil immediately if the loop was never started.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Interrupt wakes a pending pacing sleep without stopping the loop. The
// sleep recomputes what is left of its budget and continues.
func (c *Controller) Interrupt() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// AverageFPS returns the last published average frame rate.
func (c *Controller) AverageFPS() float64 {
	return c.stats.AverageFPS()
}

// Stats returns the collector owned by the loop. Only its atomic getters
// are safe to use while the loop runs.
func (c *Controller) Stats() *stats.Collector {
	return c.stats
}

// WithSurfaceLocked runs fn while no cycle holds the render target.
func (c *Controller) WithSurfaceLocked(fn func() error) error {
	c.surfaceMu.Lock()
	defer c.surfaceMu.Unlock()
	return fn()
}

func (c *Controller) run(ctx context.Context, stopRun context.CancelFunc, stopCh <-chan struct{}, done chan<- struct{}) {
	var err error

	defer func() {
		stopRun()
		c.mu.Lock()
		c.err = err
		c.state.Store(int32(Stopped))
		c.mu.Unlock()
		close(done)
	}()

	for {
		var outcome CycleOutcome
		outcome, err = c.cycle(ctx, stopCh)
		if err != nil {
			c.logger.Error("Frame loop terminated", zap.Error(err))
			return
		}

		c.record(outcome)

		if c.State() == Stopping || ctx.Err() != nil {
			c.logger.Info("Frame loop stopped cleanly",
				zap.Uint64("frames", c.stats.TotalFrames()),
				zap.Uint64("skipped", c.stats.TotalSkipped()))
			return
		}
	}
}

// cycle runs steps from acquire to release. The render target is released
// on every return path before surfaceMu is unlocked.
func (c *Controller) cycle(ctx context.Context, stopCh <-chan struct{}) (CycleOutcome, error) {
	var outcome CycleOutcome

	c.surfaceMu.Lock()
	defer c.surfaceMu.Unlock()

	target, err := c.surface.Lock(ctx)
	if err != nil {
		c.logger.Debug("Render target unavailable", zap.Error(err))
		target = nil
	} else {
		defer c.surface.UnlockAndPost(target)
	}

	start := c.clock.Now()

	if err := c.sim.Advance(); err != nil {
		return outcome, &FatalCollaboratorError{Op: "advance", Err: err}
	}

	if target != nil {
		if err := c.renderer.RenderFrame(target); err != nil {
			if !errors.Is(err, ErrTransientUnavailable) {
				return outcome, &FatalCollaboratorError{Op: "render", Err: err}
			}
			c.logger.Warn("Render target lost during render", zap.Error(err))
		} else {
			outcome.Rendered = true
		}
	}

	outcome.Work = c.clock.Now().Sub(start)

	decision := c.pacer.Decide(outcome.Work)
	outcome.Budget = decision.Budget
	outcome.Skipped = decision.Skipped
	outcome.Sleep = decision.Sleep()

	if outcome.Sleep > 0 {
		c.pause(ctx, stopCh, start.Add(outcome.Work).Add(outcome.Sleep))
	}

	for i := 0; i < decision.Skipped; i++ {
		if err := c.sim.Advance(); err != nil {
			return outcome, &FatalCollaboratorError{Op: "catch-up", Err: err}
		}
	}

	if decision.Skipped > 0 {
		c.logger.Debug("Skipped frames to catch up",
			zap.Int("skipped", decision.Skipped),
			zap.Duration("work", outcome.Work))
	}

	return outcome, nil
}

// pause sleeps until deadline. Interrupt only re-arms the timer; stop and
// context cancellation end the sleep.
func (c *Controller) pause(ctx context.Context, stopCh <-chan struct{}, deadline time.Time) {
	for {
		remaining := deadline.Sub(c.clock.Now())
		if remaining <= 0 {
			return
		}

		timer := c.clock.NewTimer(remaining)

		select {
		case <-timer.C():
		case <-c.wake:
			timer.Stop()
			c.logger.Debug("Pacing sleep woken early",
				zap.Error(ErrInterruptedWait),
				zap.Duration("remaining", deadline.Sub(c.clock.Now())))
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (c *Controller) record(outcome CycleOutcome) {
	c.stats.RecordSkipped(outcome.Skipped)

	var (
		report   stats.Report
		boundary bool
	)
	if outcome.Rendered {
		report, boundary = c.stats.RecordFrameCompletion()
	} else {
		report, boundary = c.stats.RecordUnrendered()
	}

	for _, o := range c.observers {
		o.ObserveCycle(outcome)
	}

	if !boundary {
		return
	}

	c.logger.Debug("Frame statistics",
		zap.Float64("average_fps", report.Average),
		zap.Float64("instant_fps", report.Instantaneous),
		zap.Uint64("skipped", report.Skipped),
		zap.Uint64("unrendered", report.Unrendered))

	if c.publisher != nil {
		c.publisher.PublishStats(stats.FormatRate(report.Average))
	}
	for _, o := range c.observers {
		o.ObserveReport(report)
	}
}
