package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are the optional runtime counters exposed for long-running daemon
// use. Registered against a caller-supplied
// registry so tests and multiple Server instances don't collide on the
// default global registry.
type metrics struct {
	handshakes     *prometheus.CounterVec
	commands       *prometheus.CounterVec
	commandLatency prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "u8node_session_handshakes_total",
			Help: "SecureSession handshake legs completed, by leg and outcome.",
		}, []string{"leg", "outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "u8node_session_commands_total",
			Help: "SecureSession commands dispatched, by command and outcome.",
		}, []string{"command", "outcome"}),
		commandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "u8node_session_command_seconds",
			Help:    "SecureSession command handler latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.handshakes, m.commands, m.commandLatency)
	}
	return m
}

func (m *metrics) observeHandshake(leg string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.handshakes.WithLabelValues(leg, outcome).Inc()
}

func (m *metrics) observeCommand(command string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}
