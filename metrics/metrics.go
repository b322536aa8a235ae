// Package metrics instruments the protocol engine with Prometheus
// collectors. A nil *Collector is a valid no-op so the engine can run
// without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slimwire"

// Collector holds the engine's Prometheus instruments.
type Collector struct {
	framesDecoded   prometheus.Counter
	framesDiscarded prometheus.Counter
	commands        *prometheus.CounterVec
	statuses        *prometheus.CounterVec
	reconnects      prometheus.Counter
	heartbeats      prometheus.Counter
	deliveries      *prometheus.CounterVec
	connectionState prometheus.Gauge
}

// New registers the engine collectors with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		framesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Inbound protocol frames decoded successfully.",
		}),
		framesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_discarded_total",
			Help:      "Length prefixes skipped while resynchronizing the frame stream.",
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound commands by 4-byte tag.",
		}, []string{"tag"}),
		statuses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statuses_total",
			Help:      "Outbound status reports by event code.",
		}, []string{"event"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Connection attempts after a lost connection.",
		}),
		heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeat status reports emitted by the timer.",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_deliveries_total",
			Help:      "Stream URL deliveries by source (api or fallback).",
		}, []string{"source"}),
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Connection state: 0 disconnected, 1 connecting, 2 connected.",
		}),
	}
}

func (c *Collector) FrameDecoded(discarded int) {
	if c == nil {
		return
	}
	c.framesDecoded.Inc()
	c.framesDiscarded.Add(float64(discarded))
}

func (c *Collector) Command(tag string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(tag).Inc()
}

func (c *Collector) Status(event string) {
	if c == nil {
		return
	}
	c.statuses.WithLabelValues(event).Inc()
}

func (c *Collector) Reconnect() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

func (c *Collector) Heartbeat() {
	if c == nil {
		return
	}
	c.heartbeats.Inc()
}

func (c *Collector) Delivery(source string) {
	if c == nil {
		return
	}
	c.deliveries.WithLabelValues(source).Inc()
}

func (c *Collector) ConnectionState(state float64) {
	if c == nil {
		return
	}
	c.connectionState.Set(state)
}
