package node

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
)

type Metrics struct {
	Membership *cyclon.Metrics

	Broadcast *epto.Metrics

	// MessagesDropped is the total number of messages the transport failed
	// to queue.
	MessagesDropped prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Membership: cyclon.NewMetrics(),
		Broadcast:  epto.NewMetrics(),
		MessagesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "node",
				Name:      "messages_dropped_total",
				Help:      "Total number of messages the transport failed to queue",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	m.Membership.Register(reg)
	m.Broadcast.Register(reg)
	reg.MustRegister(m.MessagesDropped)
}
