package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects viewer-side playback counters.
type Metrics struct {
	commands      *prometheus.CounterVec
	streamClients prometheus.Gauge
	snapshotsSent prometheus.Counter
}

// NewMetrics registers the viewer metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepsake_playback_commands_total",
			Help: "Playback commands received, by command name and outcome.",
		}, []string{"command", "outcome"}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keepsake_stream_clients",
			Help: "Connected snapshot stream clients.",
		}),
		snapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepsake_snapshots_sent_total",
			Help: "Snapshots pushed to stream clients.",
		}),
	}
	reg.MustRegister(m.commands, m.streamClients, m.snapshotsSent)
	return m
}

func (m *Metrics) recordCommand(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}
