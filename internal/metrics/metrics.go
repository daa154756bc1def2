// Package metrics is the Metrics Registry (C12): typed Prometheus
// vectors backing the read-only metrics snapshot of spec.md §6,
// registered via promauto the way the teacher's internal/escrow/
// metrics.go registers its economic-barrier metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Registry holds every metric this module exports.
type Registry struct {
	ExecutionsTotal    *prometheus.CounterVec
	ExecutionDuration  *prometheus.HistogramVec
	QueueDepth         prometheus.Gauge
	SchedulerDecisions *prometheus.CounterVec
	CapabilityChecks   *prometheus.CounterVec
	CapabilityDenied   *prometheus.CounterVec
	ActiveWorkers      *prometheus.GaugeVec
}

// New creates and registers all metrics against the default Prometheus
// registry, mirroring escrow.NewMetrics's promauto-on-construction
// style.
func New() *Registry {
	return &Registry{
		ExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextrc_executions_total",
				Help: "Total number of back-end executions, by runtime and outcome",
			},
			[]string{"runtime", "outcome"},
		),
		ExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nextrc_execution_duration_seconds",
				Help:    "Execution duration per back-end",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"runtime"},
		),
		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nextrc_queue_depth",
				Help: "Current number of in-flight or pending executions",
			},
		),
		SchedulerDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextrc_scheduler_decisions_total",
				Help: "Scheduler decisions, by profile and chosen runtime",
			},
			[]string{"profile", "runtime"},
		),
		CapabilityChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextrc_capability_checks_total",
				Help: "Total capability checks, by capability",
			},
			[]string{"capability"},
		),
		CapabilityDenied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextrc_capability_denied_total",
				Help: "Total denied capability checks, by capability",
			},
			[]string{"capability"},
		),
		ActiveWorkers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nextrc_cordon_active_workers",
				Help: "Active cordon workers, by trust level",
			},
			[]string{"trust_level"},
		),
	}
}

// RecordExecution updates the counters and histogram for one execution
// outcome.
func (r *Registry) RecordExecution(runtime core.RuntimeKind, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.ExecutionsTotal.WithLabelValues(string(runtime), outcome).Inc()
	r.ExecutionDuration.WithLabelValues(string(runtime)).Observe(seconds)
}

// RecordDecision records a scheduler decision for the metrics snapshot.
func (r *Registry) RecordDecision(profile core.WorkloadProfile, runtime core.RuntimeKind) {
	r.SchedulerDecisions.WithLabelValues(string(profile), string(runtime)).Inc()
}

// RecordCapabilityCheck records a capability check, and a denial when
// granted is false.
func (r *Registry) RecordCapabilityCheck(cap core.Capability, granted bool) {
	r.CapabilityChecks.WithLabelValues(string(cap)).Inc()
	if !granted {
		r.CapabilityDenied.WithLabelValues(string(cap)).Inc()
	}
}

// Snapshot is the read-only metrics surface of spec.md §6.
type Snapshot struct {
	Initialized       bool
	AvailableRuntimes []core.RuntimeKind
	QueueSize         int
	QueuePending      int
	TotalExecutions   int64
	PerRuntimeAvgMs   map[core.RuntimeKind]float64
	PerRuntimeSuccess map[core.RuntimeKind]float64
}
