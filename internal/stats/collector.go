// Package stats collects rolling frame-rate statistics for the frame loop.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"grow/internal/clock"
)

const (
	// DefaultInterval is the statistics sampling window.
	DefaultInterval = time.Second

	// DefaultWindowSize is the number of interval samples averaged.
	DefaultWindowSize = 10
)

// Config configures a Collector.
type Config struct {
	// Interval is the wall-clock window over which one FPS sample is taken.
	// It must be a whole number of seconds.
	Interval time.Duration

	// WindowSize is the number of recent samples the average is taken over.
	WindowSize int
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, WindowSize: DefaultWindowSize}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Interval < time.Second || c.Interval%time.Second != 0 {
		return fmt.Errorf("stat interval must be a positive whole number of seconds, got %v", c.Interval)
	}
	if c.WindowSize < 1 {
		return errors.New("stats window size must be at least 1")
	}
	return nil
}

// Report is produced at every interval boundary.
type Report struct {
	// Instantaneous is the FPS measured over the interval just closed.
	Instantaneous float64
	// Average is the mean over the populated window slots.
	Average float64

	Frames     uint64 // rendered frames in the interval
	Skipped    uint64 // catch-up steps in the interval
	Unrendered uint64 // cycles without a render target in the interval

	TotalFrames  uint64
	TotalSkipped uint64
	Reports      uint64
	Elapsed      time.Duration
}

// Collector accumulates per-cycle events and closes an interval once its
// duration has elapsed. It has a single writer; AverageFPS and the Total
// getters may be read from any goroutine.
type Collector struct {
	clock    clock.Clock
	interval time.Duration
	seconds  uint64

	// fps history ring; slots beyond reportCount stay zero
	samples     []float64
	sampleIndex int
	reportCount uint64

	lastBoundary           time.Time
	framesThisInterval     uint64
	skippedThisInterval    uint64
	unrenderedThisInterval uint64

	averageBits  atomic.Uint64
	totalFrames  atomic.Uint64
	totalSkipped atomic.Uint64
	reports      atomic.Uint64
}

// NewCollector creates a collector. A nil clock means clock.System.
func NewCollector(cfg Config, clk clock.Clock) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.System
	}

	c := &Collector{
		clock:    clk,
		interval: cfg.Interval,
		seconds:  uint64(cfg.Interval / time.Second),
		samples:  make([]float64, cfg.WindowSize),
	}
	c.lastBoundary = clk.Now()

	return c, nil
}

// Reset restarts the current interval at the present time. History and
// lifetime totals are kept.
func (c *Collector) Reset() {
	c.lastBoundary = c.clock.Now()
	c.framesThisInterval = 0
	c.skippedThisInterval = 0
	c.unrenderedThisInterval = 0
}

// RecordSkipped adds n catch-up steps to the current interval.
func (c *Collector) RecordSkipped(n int) {
	if n > 0 {
		c.skippedThisInterval += uint64(n)
	}
}

// RecordFrameCompletion counts one rendered cycle. It returns a report when
// the call closed an interval.
func (c *Collector) RecordFrameCompletion() (Report, bool) {
	c.framesThisInterval++
	c.totalFrames.Add(1)

	return c.checkBoundary()
}

// RecordUnrendered counts a cycle that ran without a render target. The
// cycle advances time but contributes no frame.
func (c *Collector) RecordUnrendered() (Report, bool) {
	c.unrenderedThisInterval++

	return c.checkBoundary()
}

func (c *Collector) checkBoundary() (Report, bool) {
	now := c.clock.Now()
	elapsed := now.Sub(c.lastBoundary)
	if elapsed < c.interval {
		return Report{}, false
	}

	// frames per whole second of the interval, integer division
	instantaneous := float64(c.framesThisInterval / c.seconds)

	c.samples[c.sampleIndex] = instantaneous
	c.sampleIndex = (c.sampleIndex + 1) % len(c.samples)
	c.reportCount++

	var total float64
	for _, fps := range c.samples {
		total += fps
	}

	divisor := uint64(len(c.samples))
	if c.reportCount < divisor {
		divisor = c.reportCount
	}
	average := total / float64(divisor)

	c.averageBits.Store(math.Float64bits(average))
	c.totalSkipped.Add(c.skippedThisInterval)
	c.reports.Store(c.reportCount)

	report := Report{
		Instantaneous: instantaneous,
		Average:       average,
		Frames:        c.framesThisInterval,
		Skipped:       c.skippedThisInterval,
		Unrendered:    c.unrenderedThisInterval,
		TotalFrames:   c.totalFrames.Load(),
		TotalSkipped:  c.totalSkipped.Load(),
		Reports:       c.reportCount,
		Elapsed:       elapsed,
	}

	c.framesThisInterval = 0
	c.skippedThisInterval = 0
	c.unrenderedThisInterval = 0
	c.lastBoundary = c.clock.Now()

	return report, true
}

// AverageFPS returns the average published at the last boundary.
func (c *Collector) AverageFPS() float64 {
	return math.Float64frombits(c.averageBits.Load())
}

// TotalFrames returns the number of rendered frames since creation.
func (c *Collector) TotalFrames() uint64 {
	return c.totalFrames.Load()
}

// TotalSkipped returns the catch-up steps folded in at interval boundaries.
func (c *Collector) TotalSkipped() uint64 {
	return c.totalSkipped.Load()
}

// Reports returns how many intervals have been closed.
func (c *Collector) Reports() uint64 {
	return c.reports.Load()
}

// Samples returns a copy of the sample window in slot order.
// Only the loop goroutine may call it while the loop runs.
func (c *Collector) Samples() []float64 {
	out := make([]float64, len(c.samples))
	copy(out, c.samples)
	return out
}

// FormatRate renders an FPS value for display, e.g. "FPS: 49.5". The value
// is rounded half to even at two decimals and trailing zeros are dropped.
func FormatRate(fps float64) string {
	return "FPS: " + humanize.FtoaWithDigits(math.RoundToEven(fps*100)/100, 2)
}
