// Package telemetry provides Prometheus instrumentation for the sync engine.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/services"
)

// Verify interface compliance
var _ driven.SyncMetrics = (*SyncMetrics)(nil)

const namespace = "cms_mirror"

// SyncMetrics holds the Prometheus collectors for sync activity.
// A nil *SyncMetrics is a valid no-op recorder.
type SyncMetrics struct {
	runs            *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	items           *prometheus.CounterVec
	skippedTriggers prometheus.Counter
}

// NewSyncMetrics creates the sync collectors and registers them with reg.
// If reg is nil, it returns nil (no-op metrics).
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &SyncMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Finished sync runs by result.",
		}, []string{"result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "step_duration_seconds",
			Help:      "Duration of per-entity sync steps in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
		}, []string{"kind", "result"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Upstream items processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		skippedTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "skipped_triggers_total",
			Help:      "Triggers rejected because a run was already active.",
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.stepDuration, m.items, m.skippedTriggers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordItem counts one processed upstream item
func (m *SyncMetrics) RecordItem(kind domain.EntityKind, outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(string(kind), outcome).Inc()
}

// RecordStep observes one routine's duration
func (m *SyncMetrics) RecordStep(kind domain.EntityKind, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(string(kind), result(success)).Observe(d.Seconds())
}

// RecordRun counts one run. Skipped runs also feed the skipped trigger counter.
func (m *SyncMetrics) RecordRun(res string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(res).Inc()
	if res == services.RunResultSkipped {
		m.skippedTriggers.Inc()
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BuildInfo registers a constant gauge labelled with the running version.
func BuildInfo(reg prometheus.Registerer, version, commit string) error {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information of the running binary.",
		ConstLabels: prometheus.Labels{"version": version, "commit": commit},
	})
	g.Set(1)
	return reg.Register(g)
}
