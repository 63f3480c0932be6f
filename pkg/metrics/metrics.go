// Package metrics provides Prometheus instrumentation for the
// schedule-optimization engine, adapted from the teacher's
// MetricsService (registry + typed collector struct, nil-receiver-safe
// methods) but scoped to engine-specific series — there is no HTTP or
// database layer here to instrument.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and updates the engine's Prometheus series.
type Collector struct {
	registry *prometheus.Registry
	handler  http.Handler

	solveDuration    prometheus.Histogram
	assignedTotal    prometheus.Counter
	unassignedTotal  *prometheus.CounterVec
	sectionDeviation prometheus.Gauge
	solverTimeouts   prometheus.Counter
}

// New registers the collector's series against a fresh registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	solveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Duration of MILP solver invocations",
		Buckets: prometheus.DefBuckets,
	})
	assignedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_assignments_total",
		Help: "Total number of (student, section) assignments produced",
	})
	unassignedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_unassigned_total",
		Help: "Total number of unassigned requests, by reason",
	}, []string{"reason"})
	sectionDeviation := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_section_deviation_last",
		Help: "Sum of per-section size deviation from course mean in the most recent run",
	})
	solverTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_solver_timeouts_total",
		Help: "Total number of runs where the solver hit its wall-clock budget",
	})

	registry.MustRegister(solveDuration, assignedTotal, unassignedTotal, sectionDeviation, solverTimeouts)

	return &Collector{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		solveDuration:    solveDuration,
		assignedTotal:    assignedTotal,
		unassignedTotal:  unassignedTotal,
		sectionDeviation: sectionDeviation,
		solverTimeouts:   solverTimeouts,
	}
}

// Handler exposes the Prometheus HTTP handler for a host that chooses to
// serve it; this package never listens on a socket itself.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// ObserveSolve records one solver invocation's duration and whether it
// was time-limited.
func (c *Collector) ObserveSolve(duration time.Duration, timeLimited bool) {
	if c == nil {
		return
	}
	c.solveDuration.Observe(duration.Seconds())
	if timeLimited {
		c.solverTimeouts.Inc()
	}
}

// ObserveAssignments records the number of realized assignments and
// unassigned requests (by reason) for one run.
func (c *Collector) ObserveAssignments(assigned int, unassignedByReason map[string]int) {
	if c == nil {
		return
	}
	c.assignedTotal.Add(float64(assigned))
	for reason, count := range unassignedByReason {
		c.unassignedTotal.WithLabelValues(reason).Add(float64(count))
	}
}

// ObserveSectionDeviation records the total section-size deviation from
// the most recent run's solution.
func (c *Collector) ObserveSectionDeviation(total float64) {
	if c == nil {
		return
	}
	c.sectionDeviation.Set(total)
}
