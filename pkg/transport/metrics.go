package transport

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// ConnectionsInbound is the total number of incoming connections.
	ConnectionsInbound prometheus.Counter

	// ConnectionsOutbound is the total number of outgoing connections.
	ConnectionsOutbound prometheus.Counter

	// BytesInbound is the total number of bytes read.
	BytesInbound prometheus.Counter

	// BytesOutbound is the total number of bytes written.
	BytesOutbound prometheus.Counter

	// MessagesInbound is the total number of messages received, labelled by
	// message type.
	MessagesInbound *prometheus.CounterVec

	// MessagesOutbound is the total number of messages sent, labelled by
	// message type.
	MessagesOutbound *prometheus.CounterVec

	// MessagesDropped is the total number of messages that couldn't be sent,
	// labelled by reason.
	MessagesDropped *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "connections_inbound_total",
				Help:      "Total number of incoming connections",
			},
		),
		ConnectionsOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "connections_outbound_total",
				Help:      "Total number of outgoing connections",
			},
		),
		BytesInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "bytes_inbound_total",
				Help:      "Total number of bytes read",
			},
		),
		BytesOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "bytes_outbound_total",
				Help:      "Total number of bytes written",
			},
		),
		MessagesInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "messages_inbound_total",
				Help:      "Total number of messages received",
			},
			[]string{"type"},
		),
		MessagesOutbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "messages_outbound_total",
				Help:      "Total number of messages sent",
			},
			[]string{"type"},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "transport",
				Name:      "messages_dropped_total",
				Help:      "Total number of messages that couldn't be sent",
			},
			[]string{"reason"},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.ConnectionsInbound,
		m.ConnectionsOutbound,
		m.BytesInbound,
		m.BytesOutbound,
		m.MessagesInbound,
		m.MessagesOutbound,
		m.MessagesDropped,
	)
}
