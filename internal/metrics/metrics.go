// Package metrics exposes tarmac's Prometheus instruments and the small admin
// HTTP surface that serves them. A nil *Registry is valid and records
// nothing, so packages can be used without metrics wired in.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds tarmac's instruments on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	storeOps         *prometheus.CounterVec
	storeOpDuration  *prometheus.HistogramVec
	snapshotsApplied prometheus.Counter
	pushErrors       prometheus.Counter
	undoResults      *prometheus.CounterVec
	authAttempts     *prometheus.CounterVec
	records          prometheus.Gauge
}

// New builds a Registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tarmac_store_operations_total",
			Help: "Record store operations by operation and result",
		}, []string{"op", "result"}),
		storeOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tarmac_store_operation_duration_seconds",
			Help:    "Record store operation latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		snapshotsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "tarmac_snapshots_applied_total",
			Help: "Pushed collection snapshots applied to the local copy",
		}),
		pushErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tarmac_push_errors_total",
			Help: "Errors reported by the record store push stream",
		}),
		undoResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tarmac_undo_total",
			Help: "Undo slot outcomes: restored, failed or expired",
		}, []string{"result"}),
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tarmac_auth_attempts_total",
			Help: "Secret challenges by result",
		}, []string{"result"}),
		records: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tarmac_records",
			Help: "Records in the local collection",
		}),
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveStoreOp records one store call.
func (r *Registry) ObserveStoreOp(op string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.storeOps.WithLabelValues(op, result).Inc()
	r.storeOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// SnapshotApplied records a pushed collection of n records.
func (r *Registry) SnapshotApplied(n int) {
	if r == nil {
		return
	}
	r.snapshotsApplied.Inc()
	r.records.Set(float64(n))
}

// RecordCount updates the local collection size.
func (r *Registry) RecordCount(n int) {
	if r == nil {
		return
	}
	r.records.Set(float64(n))
}

// PushError records a push-stream failure.
func (r *Registry) PushError() {
	if r == nil {
		return
	}
	r.pushErrors.Inc()
}

// Undo records an undo slot outcome ("restored", "failed", "expired").
func (r *Registry) Undo(result string) {
	if r == nil {
		return
	}
	r.undoResults.WithLabelValues(result).Inc()
}

// AuthAttempt records a secret challenge ("accepted", "rejected", "cancelled", "session").
func (r *Registry) AuthAttempt(result string) {
	if r == nil {
		return
	}
	r.authAttempts.WithLabelValues(result).Inc()
}
