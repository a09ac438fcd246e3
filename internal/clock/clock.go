// Package clock provides the time source used by the frame loop.
//
// The loop only needs two things from time: a monotonic "now" and a channel
// that fires after a duration. Both are behind an interface so the loop and
// the statistics collector can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides time-related operations.
type Clock interface {
	// Now returns the current time. Values carry a monotonic reading.
	Now() time.Time

	// NewTimer returns a timer that fires once after d.
	NewTimer(d time.Duration) Timer
}

// Timer is a one-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// System is the Clock backed by the standard library.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop() bool          { return s.t.Stop() }

// Manual is a Clock whose time only moves when told to.
//
// Timers created by a Manual clock fire immediately and advance the clock by
// their duration, so a sleep of d is observed as exactly d of elapsed time.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// NewTimer advances the clock by d and returns an already fired timer.
func (m *Manual) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.slept = append(m.slept, d)
	fired := m.now
	m.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- fired
	return manualTimer{ch: ch}
}

// Sleeps returns every timer duration requested so far.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Duration, len(m.slept))
	copy(out, m.slept)
	return out
}

type manualTimer struct {
	ch chan time.Time
}

func (t manualTimer) C() <-chan time.Time { return t.ch }
func (t manualTimer) Stop() bool          { return false }
