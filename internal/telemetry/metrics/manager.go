package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterSessionMutations    *prometheus.CounterVec
	CounterImports             prometheus.Counter
	CounterSettingsUpdates     prometheus.Counter

	// gauges
	GaugeRequests        prometheus.Gauge
	GaugeOpenConnections prometheus.Gauge
	GaugeLifeSignal      prometheus.Gauge
	GaugeStoredSessions  prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
	namespace  string
	subsystem  string
}

func NewTestManager() *Manager {
	return NewManager("movemix", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("movemix", "test_server", reg), reg
}

// NewManager registers every service metric on reg under namespace_subsystem_*.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	f := promauto.With(reg)
	name := func(n, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: subsystem, Name: n, Help: help}
	}
	counter := func(n, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts(name(n, help)))
	}
	gauge := func(n, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts(name(n, help)))
	}

	return &Manager{
		CounterRequests: f.NewCounterVec(
			prometheus.CounterOpts(name("request", "Incoming requests by method and status")),
			[]string{"method", "status"},
		),
		CounterHandleRequestPanic:  counter("handle_request_panic", "Handler panics recovered by the middleware"),
		CounterRateLimitedRequests: counter("rate_limited_requests", "Requests refused by the rate limiter"),
		CounterSessionMutations: f.NewCounterVec(
			prometheus.CounterOpts(name("session_mutations", "Workout sessions added, updated and removed")),
			[]string{"op"},
		),
		CounterImports:         counter("snapshot_imports", "Snapshots imported over the API"),
		CounterSettingsUpdates: counter("settings_updates", "Settings updates and resets"),

		GaugeRequests:        gauge("current_requests", "Requests currently being served"),
		GaugeOpenConnections: gauge("open_connections", "Open client connections"),
		GaugeLifeSignal:      gauge("life_signal", "1 while the service accepts requests"),
		GaugeStoredSessions:  gauge("stored_sessions", "Workout sessions in the stored document"),

		HistogramRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request latency per route",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 8),
		}, []string{"route", "method", "status_code"}),

		registerer: reg,
		namespace:  namespace,
		subsystem:  subsystem,
	}
}

// RegisterCacheHitRate exposes the document cache hit rate, when a cache is in use.
func (m *Manager) RegisterCacheHitRate(hitRate func() float64) {
	promauto.With(m.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "document_cache_hit_rate",
		Help:      "Hit rate of the document read cache",
	}, hitRate)
}
