// Package scene is the demo world driven by the frame loop: a droid bouncing
// around the surface with the measured frame rate in the top-right corner.
package scene

import (
	"image/color"
	"sync/atomic"

	"go.uber.org/zap"

	"grow/internal/graphics"
	"grow/internal/input"
)

// charWidth is the advance of the debug font used by the window backend.
const charWidth = 6

// ExitZoneHeight is the strip at the bottom of the surface where a pointer
// press asks the application to quit.
const ExitZoneHeight = 50

// DefaultSpeed moves the droid 2 pixels per step on both axes.
var DefaultSpeed = Speed{XV: 2, YV: 2}

// Scene implements loop.Simulation, loop.Renderer and loop.StatsPublisher.
// Advance and RenderFrame must be called from a single goroutine;
// PublishStats and Label may be called from any.
type Scene struct {
	width  int
	height int
	droid  *Droid
	label  atomic.Pointer[string]
	steps  atomic.Uint64
	logger *zap.Logger

	input  *input.Queue
	onExit func()

	background color.Color
}

// New creates a scene for a width x height surface with the droid at (50, 50).
func New(width, height int, logger *zap.Logger) *Scene {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scene{
		width:      width,
		height:     height,
		droid:      NewDroid(50, 50, DefaultSpeed),
		logger:     logger,
		background: color.Black,
	}
}

// AttachInput makes Advance consume pointer events from q.
func (s *Scene) AttachInput(q *input.Queue) {
	s.input = q
}

// OnExitRequest registers fn to be called when the pointer is pressed in
// the exit zone.
func (s *Scene) OnExitRequest(fn func()) {
	s.onExit = fn
}

// Advance applies pending pointer events and moves the world by one step.
func (s *Scene) Advance() error {
	if s.input != nil {
		for _, e := range s.input.Drain() {
			s.handlePointer(e)
		}
	}

	s.droid.Update(s.width, s.height)
	s.steps.Add(1)
	return nil
}

func (s *Scene) handlePointer(e input.Event) {
	switch e.Kind {
	case input.PointerDown:
		if e.Y > s.height-ExitZoneHeight {
			s.logger.Info("Exit requested from pointer", zap.Int("x", e.X), zap.Int("y", e.Y))
			if s.onExit != nil {
				s.onExit()
			}
			return
		}
		s.droid.HandleActionDown(e.X, e.Y)
		s.logger.Debug("Pointer down", zap.Int("x", e.X), zap.Int("y", e.Y), zap.Bool("touched", s.droid.Touched))
	case input.PointerMove:
		if s.droid.Touched {
			s.droid.X, s.droid.Y = e.X, e.Y
		}
	case input.PointerUp:
		s.droid.Touched = false
	}
}

// RenderFrame clears the canvas, draws the droid and the rate label.
func (s *Scene) RenderFrame(canvas graphics.Canvas) error {
	canvas.Fill(s.background)

	r := s.droid.Bounds()
	canvas.DrawImage(s.droid.Bitmap(), r.Min.X, r.Min.Y)

	if label := s.Label(); label != "" {
		w, _ := canvas.Size()
		canvas.DrawText(label, w-len(label)*charWidth-4, 4)
	}

	return nil
}

// PublishStats replaces the rate label.
func (s *Scene) PublishStats(rate string) {
	s.label.Store(&rate)
	s.logger.Debug("Average FPS", zap.String("rate", rate))
}

// Label returns the current rate label, empty before the first report.
func (s *Scene) Label() string {
	if p := s.label.Load(); p != nil {
		return *p
	}
	return ""
}

// Steps returns the number of simulation steps taken.
func (s *Scene) Steps() uint64 {
	return s.steps.Load()
}

// Droid returns the droid. Only safe to inspect when the loop is stopped.
func (s *Scene) Droid() *Droid {
	return s.droid
}
