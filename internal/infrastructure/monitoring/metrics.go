package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Bridge metrics
	RecordsAppended    *prometheus.CounterVec
	Notifications      prometheus.Counter
	Flushes            *prometheus.CounterVec
	FlushBatchSize     prometheus.Histogram
	FlushDuration      prometheus.Histogram
	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	RoundTripsPending  prometheus.Gauge
	RoundTrips         *prometheus.CounterVec
	Collections        prometheus.Counter
	CollectedObjects   prometheus.Counter
	LiveHandles        prometheus.Gauge
	ContextsActive     prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Host transport metrics
	TransportCalls    *prometheus.CounterVec
	TransportDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration prometheus.Histogram

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// NewMetrics registers all metrics on reg. Passing nil uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RecordsAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_records_appended_total",
				Help: "Total number of command records appended",
			},
			[]string{"op"},
		),
		Notifications: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webf_batch_notifications_total",
				Help: "Total number of schedule update notifications sent to the host",
			},
		),
		Flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_flushes_total",
				Help: "Total number of non-empty flushes by result",
			},
			[]string{"result"},
		),
		FlushBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webf_flush_batch_size",
				Help:    "Number of records delivered per flush",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		FlushDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webf_flush_duration_seconds",
				Help:    "Flush hand-off duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_invocations_total",
				Help: "Total number of binding method invocations",
			},
			[]string{"method", "result"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webf_invocation_duration_seconds",
				Help:    "Binding method invocation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method"},
		),
		RoundTripsPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webf_roundtrips_pending",
				Help: "Number of async round trips awaiting the host",
			},
		),
		RoundTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_roundtrips_total",
				Help: "Total number of settled async round trips",
			},
			[]string{"result"},
		),
		Collections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webf_gc_collections_total",
				Help: "Total number of tracing collections",
			},
		),
		CollectedObjects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webf_gc_swept_objects_total",
				Help: "Total number of objects swept by the collector",
			},
		),
		LiveHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webf_live_handles",
				Help: "Number of binding handles currently allocated",
			},
		),
		ContextsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webf_contexts_active",
				Help: "Number of open execution contexts",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webf_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		TransportCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_transport_calls_total",
				Help: "Total number of host transport round trips",
			},
			[]string{"transport", "kind", "status"},
		),
		TransportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webf_transport_duration_seconds",
				Help:    "Host transport round trip duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"transport", "kind"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webf_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "kind"},
		),

		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webf_script_runs_total",
				Help: "Total number of script executions by result",
			},
			[]string{"result"},
		),
		ScriptDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webf_script_duration_seconds",
				Help:    "Script execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "webf_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordAppend records one appended command record.
func (m *Metrics) RecordAppend(op string) {
	if m == nil {
		return
	}
	m.RecordsAppended.WithLabelValues(op).Inc()
}

// RecordNotification records a schedule update notification.
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.Notifications.Inc()
	m.mu.Lock()
	m.snapshot.Notifications++
	m.mu.Unlock()
}

// RecordFlush records a non-empty flush.
func (m *Metrics) RecordFlush(result string, records int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(result).Inc()
	m.FlushBatchSize.Observe(float64(records))
	m.FlushDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Flushes++
	m.snapshot.RecordsFlushed += int64(records)
	if result != "ok" {
		m.snapshot.FlushErrors++
	}
	m.mu.Unlock()
}

// RecordInvocation records a binding method call.
func (m *Metrics) RecordInvocation(method, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(method, result).Inc()
	m.InvocationDuration.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Invocations++
	m.mu.Unlock()
}

// RoundTripStarted increments the pending round trip gauge.
func (m *Metrics) RoundTripStarted() {
	if m == nil {
		return
	}
	m.RoundTripsPending.Inc()
}

// RoundTripSettled records a settled round trip.
func (m *Metrics) RoundTripSettled(result string) {
	if m == nil {
		return
	}
	m.RoundTripsPending.Dec()
	m.RoundTrips.WithLabelValues(result).Inc()
}

// RecordCollection records one collector cycle.
func (m *Metrics) RecordCollection(swept int) {
	if m == nil {
		return
	}
	m.Collections.Inc()
	m.CollectedObjects.Add(float64(swept))
}

// SetLiveHandles sets the live binding handle gauge.
func (m *Metrics) SetLiveHandles(n int) {
	if m == nil {
		return
	}
	m.LiveHandles.Set(float64(n))
}

// ContextOpened increments the active context gauge.
func (m *Metrics) ContextOpened() {
	if m == nil {
		return
	}
	m.ContextsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveContexts++
	m.mu.Unlock()
}

// ContextClosed decrements the active context gauge.
func (m *Metrics) ContextClosed() {
	if m == nil {
		return
	}
	m.ContextsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveContexts--
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTransportCall records a host transport round trip.
func (m *Metrics) RecordTransportCall(transport, kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TransportCalls.WithLabelValues(transport, kind, status).Inc()
	m.TransportDuration.WithLabelValues(transport, kind).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, kind string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, kind).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// RecordScript records one script execution.
func (m *Metrics) RecordScript(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScriptRuns.WithLabelValues(result).Inc()
	m.ScriptDuration.Observe(duration.Seconds())
}
