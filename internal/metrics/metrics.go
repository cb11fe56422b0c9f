// Package metrics exposes prometheus instruments for the sync engine and
// the write path. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shiftlog"

// Metrics holds every instrument on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	activeSubscriptions prometheus.Gauge
	subscriptions       prometheus.Counter
	snapshots           prometheus.Counter
	staleSnapshots      prometheus.Counter
	subscriptionErrors  prometheus.Counter
	mirrorSize          prometheus.Gauge
	writes              *prometheus.CounterVec
}

// New registers all instruments plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscriptions",
			Help:      "Number of open work-log subscriptions.",
		}),
		subscriptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Work-log subscriptions opened.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Snapshots that replaced the mirror.",
		}),
		staleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_dropped_total",
			Help:      "Snapshots discarded because their subscription was already cancelled.",
		}),
		subscriptionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_errors_total",
			Help:      "Snapshot delivery failures.",
		}),
		mirrorSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mirror_records",
			Help:      "Work logs currently held in the mirror.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Remote writes by operation and result.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(
		m.activeSubscriptions,
		m.subscriptions,
		m.snapshots,
		m.staleSnapshots,
		m.subscriptionErrors,
		m.mirrorSize,
		m.writes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SubscriptionOpened counts a newly opened subscription.
func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
	m.activeSubscriptions.Inc()
}

// SubscriptionClosed records a cancelled subscription.
func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.activeSubscriptions.Dec()
}

// SnapshotApplied records a mirror replacement holding size records.
func (m *Metrics) SnapshotApplied(size int) {
	if m == nil {
		return
	}
	m.snapshots.Inc()
	m.mirrorSize.Set(float64(size))
}

// SnapshotDropped counts a snapshot of a cancelled subscription.
func (m *Metrics) SnapshotDropped() {
	if m == nil {
		return
	}
	m.staleSnapshots.Inc()
}

// SubscriptionError counts a failed subscribe or a subscription error.
func (m *Metrics) SubscriptionError() {
	if m == nil {
		return
	}
	m.subscriptionErrors.Inc()
}

// MirrorCleared records an empty mirror after an identity change.
func (m *Metrics) MirrorCleared() {
	if m == nil {
		return
	}
	m.mirrorSize.Set(0)
}

// Write records one remote put or delete.
func (m *Metrics) Write(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(op, result).Inc()
}
