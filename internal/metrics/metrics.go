// Package metrics exports rule and flow activity as Prometheus metrics.
//
// A Collector implements both rule.Sink and engine.StepObserver, so one
// value can be installed on a flow with engine.WithSink and
// engine.WithObserver. Collectors register on a caller-supplied registry;
// nothing is registered globally.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/rule"
)

const namespace = "ruleflow"

// Collector holds every ruleflow metric.
type Collector struct {
	// Labels: rule
	Applications *prometheus.CounterVec
	// Labels: rule
	Executions *prometheus.CounterVec
	// Labels: rule
	Branches *prometheus.CounterVec
	// Labels: rule
	Conflicts *prometheus.CounterVec

	Steps          prometheus.Counter
	InertFlows     prometheus.Counter
	CellsCreated   prometheus.Counter
	CellsDestroyed prometheus.Counter
	LiveSpaces     prometheus.Gauge
	CausalDistance prometheus.Histogram
}

var (
	_ rule.Sink           = (*Collector)(nil)
	_ engine.StepObserver = (*Collector)(nil)
)

// New creates a Collector and registers it on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Applications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "applications_total",
			Help:      "Rule applications that produced at least one output space",
		}, []string{"rule"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "executions_total",
			Help:      "Working copies flushed as output spaces",
		}, []string{"rule"}),
		Branches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "branches_total",
			Help:      "Branches opened while applying a rule",
		}, []string{"rule"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule",
			Name:      "conflicts_total",
			Help:      "Conflicting matches reached while applying a rule",
		}, []string{"rule"}),
		Steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "steps_total",
			Help:      "Events appended to flows",
		}),
		InertFlows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "inert_total",
			Help:      "Flows that became inert",
		}),
		CellsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "cells_created_total",
			Help:      "Cells created by all steps",
		}),
		CellsDestroyed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "cells_destroyed_total",
			Help:      "Cells destroyed by all steps",
		}),
		LiveSpaces: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "live_spaces",
			Help:      "Spaces held by the latest event of the most recently stepped flow",
		}),
		CausalDistance: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "causal_distance",
			Help:      "Causal distance of each appended event",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// OnConflict implements rule.Sink.
func (c *Collector) OnConflict(r *rule.Rule, _ rule.Match, _ int) {
	c.Conflicts.WithLabelValues(r.Name()).Inc()
}

// OnExecution implements rule.Sink.
func (c *Collector) OnExecution(r *rule.Rule, _ rule.Match, _ int) {
	c.Executions.WithLabelValues(r.Name()).Inc()
}

// OnBranch implements rule.Sink.
func (c *Collector) OnBranch(r *rule.Rule, _ rule.Match, _ int) {
	c.Branches.WithLabelValues(r.Name()).Inc()
}

// OnApplied implements rule.Sink. Applications that produced nothing are
// not counted.
func (c *Collector) OnApplied(r *rule.Rule, results []rule.DeltaSpace) {
	if len(results) == 0 {
		return
	}
	c.Applications.WithLabelValues(r.Name()).Inc()
}

// OnStep implements engine.StepObserver.
func (c *Collector) OnStep(_ string, ev *engine.Event) {
	created, destroyed := ev.CellCounts()
	c.Steps.Inc()
	c.CellsCreated.Add(float64(created))
	c.CellsDestroyed.Add(float64(destroyed))
	c.LiveSpaces.Set(float64(len(ev.Spaces())))
	c.CausalDistance.Observe(float64(ev.CausalDistance))
}

// OnInert implements engine.StepObserver.
func (c *Collector) OnInert(_ string, ev *engine.Event) {
	c.InertFlows.Inc()
	c.LiveSpaces.Set(float64(len(ev.Spaces())))
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus
// text exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
