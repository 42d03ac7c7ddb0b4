package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trustshield"

var cycleBuckets = []float64{
	0.01, 0.05, 0.1, // fast cycles
	0.5, 1, 2.5, // normal cycles
	5, 10, 30, // slow or stalled collaborators
}

// Metrics holds every collector the engines report to.
type Metrics struct {
	Registry *prometheus.Registry

	EscalationOutcomes *prometheus.CounterVec
	AdmissionDecisions *prometheus.CounterVec
	StoreFailures      *prometheus.CounterVec
	AlertsFired        *prometheus.CounterVec
	FindingsCreated    *prometheus.CounterVec
	PlaybookExecutions *prometheus.CounterVec
	CycleDuration      *prometheus.HistogramVec
	CycleSkipped       *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry. withProcess adds
// the process and Go runtime collectors.
func NewMetrics(withProcess bool) *Metrics {
	registry := prometheus.NewRegistry()
	if withProcess {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		EscalationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "escalation_outcomes_total",
				Help:      "Escalation evaluations by key kind and resulting action",
			},
			[]string{"kind", "action"},
		),

		AdmissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_decisions_total",
				Help:      "Rate limiter decisions by endpoint class",
			},
			[]string{"class", "decision"},
		),

		StoreFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_failures_total",
				Help:      "Recovered backing store failures by component",
			},
			[]string{"component"},
		),

		AlertsFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_fired_total",
				Help:      "Alerts persisted by rule and severity",
			},
			[]string{"rule", "severity"},
		),

		FindingsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_created_total",
				Help:      "Correlation findings newly recorded by rule",
			},
			[]string{"rule"},
		),

		PlaybookExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "playbook_executions_total",
				Help:      "Executed playbook steps by action and whether state changed",
			},
			[]string{"action", "changed"},
		),

		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of background engine cycles",
				Buckets:   cycleBuckets,
			},
			[]string{"job"},
		),

		CycleSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_skipped_total",
				Help:      "Cycles that found the previous run of the same job still in flight",
			},
			[]string{"job"},
		),
	}
}

// NewNopMetrics returns collectors bound to a private registry, for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(false)
}
