package epto

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// EventsBroadcast is the total number of events broadcast by the local
	// node.
	EventsBroadcast prometheus.Counter

	// BallsInbound is the total number of balls received.
	BallsInbound prometheus.Counter

	// BallEventsInbound is the total number of events received in balls,
	// labelled by whether the event was relayed or had expired.
	BallEventsInbound *prometheus.CounterVec

	// BallsOutbound is the total number of balls sent.
	BallsOutbound prometheus.Counter

	// EventsDelivered is the total number of events delivered.
	EventsDelivered prometheus.Counter

	// EventsRejected is the total number of received events that were
	// rejected as they were already delivered or arrived too late.
	EventsRejected prometheus.Counter

	// ReceivedEvents is the number of events waiting to be delivered.
	ReceivedEvents prometheus.Gauge

	// LogicalClock is the current logical clock.
	LogicalClock prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsBroadcast: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "broadcast",
				Name:      "events_broadcast_total",
				Help:      "Total number of events broadcast by the local node",
			},
		),
		BallsInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "broadcast",
				Name:      "balls_inbound_total",
				Help:      "Total number of balls received",
			},
		),
		BallEventsInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "broadcast",
				Name:      "ball_events_inbound_total",
				Help:      "Total number of events received in balls",
			},
			[]string{"expired"},
		),
		BallsOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "broadcast",
				Name:      "balls_outbound_total",
				Help:      "Total number of balls sent",
			},
		),
		EventsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "ordering",
				Name:      "events_delivered_total",
				Help:      "Total number of events delivered",
			},
		),
		EventsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "ordering",
				Name:      "events_rejected_total",
				Help:      "Total number of received events rejected as already delivered or too late",
			},
		),
		ReceivedEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "epto",
				Subsystem: "ordering",
				Name:      "received_events",
				Help:      "Number of events waiting to be delivered",
			},
		),
		LogicalClock: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "epto",
				Subsystem: "broadcast",
				Name:      "logical_clock",
				Help:      "Current logical clock",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.EventsBroadcast,
		m.BallsInbound,
		m.BallEventsInbound,
		m.BallsOutbound,
		m.EventsDelivered,
		m.EventsRejected,
		m.ReceivedEvents,
		m.LogicalClock,
	)
}
