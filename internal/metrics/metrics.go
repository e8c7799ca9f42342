// Package metrics holds the Prometheus instruments for progression and
// persistence. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/sortie/internal/store"
)

// Result label values.
const (
	ResultOK          = "ok"
	ResultRejected    = "rejected"
	ResultUnavailable = "unavailable"
	ResultQuota       = "quota"
	ResultCanceled    = "canceled"
	ResultError       = "error"
)

// Metrics owns a private registry so several engines (tests, harness
// scenarios) never collide on registration.
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	writes        *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec
	completedRuns prometheus.Gauge
}

// New creates and registers the instruments on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sortie_transitions_total",
			Help: "Progression transitions by name and result.",
		}, []string{"transition", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sortie_progress_writes_total",
			Help: "Progress store writes by operation and result.",
		}, []string{"op", "result"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sortie_progress_write_duration_seconds",
			Help:    "Progress store write latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		completedRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sortie_completed_runs",
			Help: "Lifetime completed campaign runs of the active profile.",
		}),
	}
	m.registry.MustRegister(m.transitions, m.writes, m.writeDuration, m.completedRuns)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Transition counts one transition attempt. A non-nil err counts as rejected.
func (m *Metrics) Transition(name string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	m.transitions.WithLabelValues(name, result).Inc()
}

// Write records one store operation and its latency.
func (m *Metrics) Write(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op, WriteResult(err)).Inc()
	m.writeDuration.WithLabelValues(op).Observe(d.Seconds())
}

// CompletedRuns sets the completed-runs gauge.
func (m *Metrics) CompletedRuns(n int) {
	if m == nil {
		return
	}
	m.completedRuns.Set(float64(n))
}

// WriteTextfile writes all metrics in the Prometheus text format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// WriteResult maps a store error onto a result label.
func WriteResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, store.ErrQuotaExceeded):
		return ResultQuota
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	case errors.Is(err, store.ErrStoreUnavailable):
		return ResultUnavailable
	default:
		return ResultError
	}
}
