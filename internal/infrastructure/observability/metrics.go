// Package observability exports pipeline metrics to Prometheus.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
)

// Metrics holds the pipeline collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runsActive      prometheus.Gauge
	runDuration     *prometheus.HistogramVec
	stagesTotal     *prometheus.CounterVec
	stageErrors     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	contextDegraded prometheus.Counter
	persistFailures prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfpflow_runs_total",
			Help: "Finished analysis runs by terminal status",
		}, []string{"status"}),

		runsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rfpflow_runs_active",
			Help: "Analysis runs currently executing",
		}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfpflow_run_duration_seconds",
			Help:    "Wall time of finished runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}, []string{"status"}),

		stagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfpflow_stages_total",
			Help: "Finished stage executions by stage and status",
		}, []string{"stage", "status"}),

		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rfpflow_stage_errors_total",
			Help: "Stage failures by stage and error kind",
		}, []string{"stage", "kind"}),

		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfpflow_stage_duration_seconds",
			Help:    "Stage execution time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11), // 0.1s to ~100s
		}, []string{"stage"}),

		contextDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfpflow_context_degraded_total",
			Help: "Runs that proceeded without retrieved context",
		}),

		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rfpflow_persist_failures_total",
			Help: "Deliverables the insight store rejected",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handle updates the collectors from a run event. It never fails.
func (m *Metrics) Handle(_ context.Context, event *events.BaseEvent) error {
	switch event.Type {
	case events.EventTypeRunStarted:
		m.runsActive.Inc()
	case events.EventTypeRunFinished:
		status := event.String(events.MetaStatus)
		m.runsActive.Dec()
		m.runsTotal.WithLabelValues(status).Inc()
		m.runDuration.WithLabelValues(status).Observe(event.Float(events.MetaDuration))
	case events.EventTypeStageFinished:
		stage := event.String(events.MetaStage)
		m.stagesTotal.WithLabelValues(stage, event.String(events.MetaStatus)).Inc()
		m.stageDuration.WithLabelValues(stage).Observe(event.Float(events.MetaDuration))
		if kind := event.String(events.MetaKind); kind != "" {
			m.stageErrors.WithLabelValues(stage, kind).Inc()
		}
	case events.EventTypeRunContextDegraded:
		m.contextDegraded.Inc()
	case events.EventTypeRunPersistFailed:
		m.persistFailures.Inc()
	}
	return nil
}

// Register subscribes the metrics to every event type they track.
func (m *Metrics) Register(d *events.EventDispatcher) {
	d.RegisterHandler("metrics", m.Handle,
		events.EventTypeRunStarted,
		events.EventTypeRunFinished,
		events.EventTypeStageFinished,
		events.EventTypeRunContextDegraded,
		events.EventTypeRunPersistFailed,
	)
}
