// Package pacing implements the fixed-period frame scheduling policy.
//
// A Pacer turns the time one cycle's work took into a decision: how long to
// sleep before the next cycle, or, when the cycle overran its period, how many
// simulation-only catch-up steps to run. Deficit beyond the catch-up cap is
// dropped and the loop simply falls behind.
package pacing

import (
	"fmt"
	"time"
)

const (
	// DefaultTargetFPS is the frame rate used when none is configured.
	DefaultTargetFPS = 50

	// DefaultMaxCatchUpSteps bounds the number of updates run without a render.
	DefaultMaxCatchUpSteps = 5

	// MaxTargetFPS keeps the integer period at one millisecond or more.
	MaxTargetFPS = 1000
)

// Pacer computes per-cycle sleep budgets and catch-up counts.
type Pacer struct {
	period     time.Duration
	maxCatchUp int
}

// Decision is the outcome of pacing one cycle.
type Decision struct {
	// Budget is the period minus the work time, plus one period for every
	// catch-up step. It stays negative when the deficit exceeded the cap.
	Budget time.Duration

	// Skipped is the number of catch-up steps authorized, never more than
	// the configured maximum.
	Skipped int
}

// Sleep returns how long the caller should block. It is never negative.
func (d Decision) Sleep() time.Duration {
	if d.Budget > 0 {
		return d.Budget
	}
	return 0
}

// New creates a pacer for targetFPS frames per second.
// The period is 1000/targetFPS milliseconds, truncated.
func New(targetFPS, maxCatchUpSteps int) (Pacer, error) {
	if targetFPS <= 0 || targetFPS > MaxTargetFPS {
		return Pacer{}, fmt.Errorf("target fps %d out of range [1, %d]", targetFPS, MaxTargetFPS)
	}
	if maxCatchUpSteps < 0 {
		return Pacer{}, fmt.Errorf("max catch-up steps must not be negative, got %d", maxCatchUpSteps)
	}

	return Pacer{
		period:     time.Duration(1000/targetFPS) * time.Millisecond,
		maxCatchUp: maxCatchUpSteps,
	}, nil
}

// Period returns the target duration of one cycle.
func (p Pacer) Period() time.Duration {
	return p.period
}

// MaxCatchUpSteps returns the catch-up cap.
func (p Pacer) MaxCatchUpSteps() int {
	return p.maxCatchUp
}

// Decide paces a cycle whose work took the given duration.
func (p Pacer) Decide(work time.Duration) Decision {
	if work < 0 {
		work = 0
	}

	d := Decision{Budget: p.period - work}

	for d.Budget < 0 && d.Skipped < p.maxCatchUp {
		d.Budget += p.period
		d.Skipped++
	}

	return d
}
