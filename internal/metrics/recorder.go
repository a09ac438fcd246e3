// Package metrics exports frame loop statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grow/internal/loop"
	"grow/internal/stats"
)

const namespace = "grow"

// Recorder implements loop.Observer on top of a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	averageFPS    prometheus.Gauge
	instantFPS    prometheus.Gauge
	frames        prometheus.Counter
	cycles        *prometheus.CounterVec
	skipped       prometheus.Counter
	reports       prometheus.Counter
	workSeconds   prometheus.Histogram
	budgetSeconds prometheus.Gauge
}

var _ loop.Observer = (*Recorder)(nil)

// NewRecorder registers the frame loop metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		averageFPS: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "average_fps",
				Help:      "Frame rate averaged over the stats window",
			},
		),

		instantFPS: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "interval_fps",
				Help:      "Frame rate measured over the last stats interval",
			},
		),

		frames: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_rendered_total",
				Help:      "Number of cycles that rendered a frame",
			},
		),

		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Number of loop cycles by outcome",
			}, []string{"outcome"},
		),

		skipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_skipped_total",
				Help:      "Number of catch-up steps taken without rendering",
			},
		),

		reports: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stats_reports_total",
				Help:      "Number of closed stats intervals",
			},
		),

		workSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_work_seconds",
				Help:      "Time spent advancing and rendering per cycle",
				Buckets:   []float64{.001, .0025, .005, .01, .02, .04, .08, .16},
			},
		),

		budgetSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cycle_budget_seconds",
				Help:      "Remaining budget of the last cycle, negative on overrun",
			},
		),
	}
}

// ObserveCycle records one loop cycle.
func (r *Recorder) ObserveCycle(outcome loop.CycleOutcome) {
	if outcome.Rendered {
		r.frames.Inc()
		r.cycles.WithLabelValues("rendered").Inc()
	} else {
		r.cycles.WithLabelValues("unrendered").Inc()
	}

	r.skipped.Add(float64(outcome.Skipped))
	r.workSeconds.Observe(outcome.Work.Seconds())
	r.budgetSeconds.Set(outcome.Budget.Seconds())
}

// ObserveReport records a closed stats interval.
func (r *Recorder) ObserveReport(report stats.Report) {
	r.averageFPS.Set(report.Average)
	r.instantFPS.Set(report.Instantaneous)
	r.reports.Inc()
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{DisableCompression: true})
}
