package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the SDK counters. A nil *Metrics is valid and records
// nothing, so components can be built without a registry.
type Metrics struct {
	registry        *prometheus.Registry
	RumEvents       *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
	ReplayRecords   *prometheus.CounterVec
	DroppedNodes    prometheus.Counter
	BitmapCache     *prometheus.CounterVec
	BitmapFailures  prometheus.Counter
	DroppedCaptures prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		RumEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "rum_events_total",
			Help:      "RUM events written, by event type",
		}, []string{"type"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "sessions_started_total",
			Help:      "Session rotations, by sampling decision",
		}, []string{"sampled"}),
		ReplayRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "replay_records_total",
			Help:      "Session replay records written, by record type",
		}, []string{"type"}),
		DroppedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "replay_dropped_nodes_total",
			Help:      "UI nodes dropped because their mapper failed",
		}),
		BitmapCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "bitmap_cache_lookups_total",
			Help:      "Base64 cache lookups, by result",
		}, []string{"result"}),
		BitmapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "bitmap_failures_total",
			Help:      "Bitmaps that could not be materialized or encoded",
		}),
		DroppedCaptures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rum_replay",
			Name:      "replay_dropped_captures_total",
			Help:      "Snapshots dropped because the record queue was full",
		}),
	}
	r.MustRegister(m.RumEvents, m.Sessions, m.ReplayRecords, m.DroppedNodes,
		m.BitmapCache, m.BitmapFailures, m.DroppedCaptures)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncRumEvent(eventType string) {
	if m == nil {
		return
	}
	m.RumEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncSession(sampled bool) {
	if m == nil {
		return
	}
	label := "false"
	if sampled {
		label = "true"
	}
	m.Sessions.WithLabelValues(label).Inc()
}

func (m *Metrics) IncReplayRecord(recordType string) {
	if m == nil {
		return
	}
	m.ReplayRecords.WithLabelValues(recordType).Inc()
}

func (m *Metrics) IncDroppedNode() {
	if m == nil {
		return
	}
	m.DroppedNodes.Inc()
}

func (m *Metrics) IncBitmapCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.BitmapCache.WithLabelValues("hit").Inc()
		return
	}
	m.BitmapCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncBitmapFailure() {
	if m == nil {
		return
	}
	m.BitmapFailures.Inc()
}

func (m *Metrics) IncDroppedCapture() {
	if m == nil {
		return
	}
	m.DroppedCaptures.Inc()
}
