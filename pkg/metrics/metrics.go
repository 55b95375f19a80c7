// Package metrics exposes gateway counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Packet outcomes.
const (
	Forwarded = "forwarded"
	Rewritten = "rewritten"
	Canceled  = "canceled"
	Consumed  = "consumed"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	packetsTotal   *prometheus.CounterVec
	authTotal      *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec
	dialTotal      *prometheus.CounterVec
	dialDuration   prometheus.Histogram
	moduleFaults   *prometheus.CounterVec
	pingInterval   prometheus.Histogram
	restartsTotal  prometheus.Counter
	acceptsDropped prometheus.Counter
	registry       *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected client sessions",
		},
	)

	m.sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of client sessions that reached play state",
		},
	)

	m.packetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Relayed packets by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	m.authTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Side-channel authentication attempts by result",
		},
		[]string{"result"},
	)

	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "In-chat gateway commands by name",
		},
		[]string{"command"},
	)

	m.dialTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_dials_total",
			Help:      "Upstream connection attempts by result",
		},
		[]string{"result"},
	)

	m.dialDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_dial_duration_seconds",
			Help:      "Time to connect and log in upstream",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.moduleFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_faults_total",
			Help:      "Module instances disabled after a hook panicked",
		},
		[]string{"module"},
	)

	m.pingInterval = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "keepalive_interval_seconds",
			Help:      "Time between client keep-alive responses",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	m.restartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_restarts_total",
			Help:      "Listener restarts triggered by high latency",
		},
	)

	m.acceptsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepts_dropped_total",
			Help:      "Connections closed by the accept rate limiter",
		},
	)

	m.registry.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.packetsTotal,
		m.authTotal,
		m.commandsTotal,
		m.dialTotal,
		m.dialDuration,
		m.moduleFaults,
		m.pingInterval,
		m.restartsTotal,
		m.acceptsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SessionOpened() {
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

// RecordPacket counts one relayed packet. direction is "clientbound" or
// "serverbound"; outcome is one of the package constants.
func (m *Metrics) RecordPacket(direction, outcome string) {
	m.packetsTotal.WithLabelValues(direction, outcome).Inc()
}

func (m *Metrics) RecordAuth(ok bool) {
	if ok {
		m.authTotal.WithLabelValues("accepted").Inc()
		return
	}
	m.authTotal.WithLabelValues("rejected").Inc()
}

func (m *Metrics) RecordCommand(command string) {
	m.commandsTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) RecordDial(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.dialTotal.WithLabelValues(result).Inc()
	m.dialDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordModuleFault(module string) {
	m.moduleFaults.WithLabelValues(module).Inc()
}

func (m *Metrics) RecordKeepAlive(interval time.Duration) {
	m.pingInterval.Observe(interval.Seconds())
}

func (m *Metrics) RecordRestart() { m.restartsTotal.Inc() }

func (m *Metrics) RecordAcceptDropped() { m.acceptsDropped.Inc() }

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
