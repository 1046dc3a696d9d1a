package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trysourcetool/sourcetool/pkg/domain"
	"github.com/trysourcetool/sourcetool/pkg/protocol"
	"github.com/trysourcetool/sourcetool/pkg/relay"
)

const namespace = "sourcetool"

// Metrics collects relay and Host metrics.
type Metrics struct {
	registry *prometheus.Registry

	hosts    prometheus.Gauge
	sessions prometheus.Gauge
	clients  prometheus.Gauge
	messages *prometheus.CounterVec
	rejected *prometheus.CounterVec

	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	widgets      *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "hosts",
			Help: "Hosts currently connected to the relay.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "sessions",
			Help: "Sessions currently open on the relay.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "clients",
			Help: "Clients currently attached to a session.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "messages_total",
			Help: "Messages routed by the relay.",
		}, []string{"direction", "kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "rejected_total",
			Help: "Connections or messages the relay answered with an exception.",
		}, []string{"reason"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "host", Name: "script_passes_total",
			Help: "Script passes finished by the Host.",
		}, []string{"page_id", "status"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "host", Name: "script_pass_duration_seconds",
			Help:    "Duration of script passes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"page_id"}),
		widgets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "host", Name: "widgets_rendered_total",
			Help: "Widgets placed by script passes.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.hosts, m.sessions, m.clients, m.messages, m.rejected,
		m.passes, m.passDuration, m.widgets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RelayHooks feeds the relay gauges and counters.
func (m *Metrics) RelayHooks() relay.Hooks {
	return relay.Hooks{
		OnHostConnected:    func(relay.HostInfo) { m.hosts.Inc() },
		OnHostDisconnected: func(relay.HostInfo) { m.hosts.Dec() },
		OnSessionOpened:    func(relay.SessionInfo) { m.sessions.Inc() },
		OnSessionClosed:    func(relay.SessionInfo) { m.sessions.Dec() },
		OnClientAttached:   func(relay.SessionInfo) { m.clients.Inc() },
		OnClientDetached:   func(relay.SessionInfo) { m.clients.Dec() },
		OnMessage: func(d relay.Direction, k protocol.Kind) {
			m.messages.WithLabelValues(string(d), string(k)).Inc()
		},
		OnRejected: func(reason string) {
			m.rejected.WithLabelValues(reason).Inc()
		},
	}
}

// HostHooks records script passes and rendered widgets.
func (m *Metrics) HostHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnScriptFinish: func(_ context.Context, e *domain.ScriptEvent) {
			m.passes.WithLabelValues(e.PageID, string(e.Status)).Inc()
			m.passDuration.WithLabelValues(e.PageID).Observe(e.Duration.Seconds())
		},
		OnWidgetRendered: func(_ context.Context, e *domain.WidgetEvent) {
			m.widgets.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}
