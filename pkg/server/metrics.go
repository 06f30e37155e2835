package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "chatwire").
	Namespace string

	// Subsystem is the metrics subsystem (default: "relay").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the dispatch duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "chatwire",
		Subsystem: "relay",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the relay's Prometheus collectors. All recording
// methods are safe on a nil receiver, so an unconfigured server skips
// metrics without branching at every call site.
//
// Metrics collected:
//   - chatwire_relay_connections_opened_total: Counter of accepted connections
//   - chatwire_relay_connections_active: Gauge of open connections
//   - chatwire_relay_handles_registered: Gauge of directory size
//   - chatwire_relay_registrations_total: Counter of registrations by result
//   - chatwire_relay_packets_routed_total: Counter of deliveries by kind
//   - chatwire_relay_packets_dropped_total: Counter of drops by reason
//   - chatwire_relay_dest_unknown_total: Counter of unresolvable destinations
//   - chatwire_relay_sender_mismatch_total: Counter of overridden sender fields
//   - chatwire_relay_list_requests_total: Counter of roster requests served
//   - chatwire_relay_dispatch_duration_seconds: Histogram of dispatch time by type
//   - chatwire_relay_bytes_read_total / bytes_written_total: wire volume
type Metrics struct {
	connsOpened    prometheus.Counter
	connsActive    prometheus.Gauge
	handles        prometheus.Gauge
	registrations  *prometheus.CounterVec
	routed         *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	destUnknown    prometheus.Counter
	senderMismatch prometheus.Counter
	listRequests   prometheus.Counter
	dispatchTime   *prometheus.HistogramVec
	bytesRead      prometheus.Counter
	bytesWritten   prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics registers the relay collectors and returns them.
//
// Example:
//
//	m := server.NewMetrics(server.WithNamespace("myrelay"))
//	srv := server.New(server.DefaultConfig().WithMetrics(m))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if g, ok := config.Registry.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		connsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections_opened_total",
			Help:        "Total number of accepted TCP connections",
			ConstLabels: config.ConstLabels,
		}),

		connsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections_active",
			Help:        "Number of currently open connections",
			ConstLabels: config.ConstLabels,
		}),

		handles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handles_registered",
			Help:        "Number of handles currently in the directory",
			ConstLabels: config.ConstLabels,
		}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registrations_total",
			Help:        "Total registration attempts by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		routed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_routed_total",
			Help:        "Total packet deliveries enqueued by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_dropped_total",
			Help:        "Total packets dropped by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		destUnknown: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dest_unknown_total",
			Help:        "Total destination errors sent back to senders",
			ConstLabels: config.ConstLabels,
		}),

		senderMismatch: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sender_mismatch_total",
			Help:        "Total packets whose sender field disagreed with the directory",
			ConstLabels: config.ConstLabels,
		}),

		listRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "list_requests_total",
			Help:        "Total roster requests served",
			ConstLabels: config.ConstLabels,
		}),

		dispatchTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Packet dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_read_total",
			Help:        "Total bytes read from clients, including frame headers",
			ConstLabels: config.ConstLabels,
		}),

		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bytes_written_total",
			Help:        "Total bytes written to clients, including frame headers",
			ConstLabels: config.ConstLabels,
		}),

		gatherer: gatherer,
	}
}

// Gatherer returns the gatherer backing these collectors, for mounting
// a /metrics endpoint.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

// ConnOpened records an accepted connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connsOpened.Inc()
	m.connsActive.Inc()
}

// ConnClosed records a closed connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// HandleCount records the current directory size.
func (m *Metrics) HandleCount(n int) {
	if m == nil {
		return
	}
	m.handles.Set(float64(n))
}

// Registration records a registration attempt outcome.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

// Routed records n deliveries of the given kind.
func (m *Metrics) Routed(kind string, n int) {
	if m == nil {
		return
	}
	m.routed.WithLabelValues(kind).Add(float64(n))
}

// Dropped records a dropped packet.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// DestUnknown records a destination error reply.
func (m *Metrics) DestUnknown() {
	if m == nil {
		return
	}
	m.destUnknown.Inc()
}

// SenderMismatch records an overridden sender field.
func (m *Metrics) SenderMismatch() {
	if m == nil {
		return
	}
	m.senderMismatch.Inc()
}

// ListServed records one roster request.
func (m *Metrics) ListServed() {
	if m == nil {
		return
	}
	m.listRequests.Inc()
}

// Dispatch records the time spent dispatching one packet.
func (m *Metrics) Dispatch(typ string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTime.WithLabelValues(typ).Observe(d.Seconds())
}

// ReadBytes records wire bytes read from a client.
func (m *Metrics) ReadBytes(n int) {
	if m == nil {
		return
	}
	m.bytesRead.Add(float64(n))
}

// WroteBytes records wire bytes written to a client.
func (m *Metrics) WroteBytes(n int) {
	if m == nil {
		return
	}
	m.bytesWritten.Add(float64(n))
}
