package cyclon

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// ViewSize is the number of peers in the view.
	ViewSize prometheus.Gauge

	// ShufflesOutbound is the total number of shuffle requests sent.
	ShufflesOutbound prometheus.Counter

	// ShuffleRequestsInbound is the total number of shuffle requests
	// received.
	ShuffleRequestsInbound prometheus.Counter

	// ShuffleRepliesInbound is the total number of shuffle replies received,
	// labelled by whether the reply was stale.
	ShuffleRepliesInbound *prometheus.CounterVec

	// ShuffleTimeouts is the total number of peers removed from the view as
	// they didn't reply to a shuffle.
	ShuffleTimeouts prometheus.Counter

	// EntriesAdded is the total number of peers added to the view.
	EntriesAdded prometheus.Counter

	// EntriesEvicted is the total number of peers evicted from the view to
	// make space for a received peer.
	EntriesEvicted prometheus.Counter

	// EntriesDropped is the total number of received peers discarded as
	// there were no peers left to evict.
	EntriesDropped prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		ViewSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "view_size",
				Help:      "Number of peers in the view",
			},
		),
		ShufflesOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "shuffles_outbound_total",
				Help:      "Total number of shuffle requests sent",
			},
		),
		ShuffleRequestsInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "shuffle_requests_inbound_total",
				Help:      "Total number of shuffle requests received",
			},
		),
		ShuffleRepliesInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "shuffle_replies_inbound_total",
				Help:      "Total number of shuffle replies received",
			},
			[]string{"stale"},
		),
		ShuffleTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "shuffle_timeouts_total",
				Help:      "Total number of peers removed after a shuffle timeout",
			},
		),
		EntriesAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "entries_added_total",
				Help:      "Total number of peers added to the view",
			},
		),
		EntriesEvicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "entries_evicted_total",
				Help:      "Total number of peers evicted for a received peer",
			},
		),
		EntriesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epto",
				Subsystem: "membership",
				Name:      "entries_dropped_total",
				Help:      "Total number of received peers discarded with no peer to evict",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.ViewSize,
		m.ShufflesOutbound,
		m.ShuffleRequestsInbound,
		m.ShuffleRepliesInbound,
		m.ShuffleTimeouts,
		m.EntriesAdded,
		m.EntriesEvicted,
		m.EntriesDropped,
	)
}
