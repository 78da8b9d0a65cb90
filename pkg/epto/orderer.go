package epto

import (
	"math"

	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/log"
)

// Orderer delivers the events seen by the node in total order.
type Orderer struct {
	maxTTL uint32

	// paperPolicy selects the admission and delivery boundaries from the
	// EpTO paper.
	paperPolicy bool

	// received contains events that have been received but not yet
	// delivered.
	received map[EventID]Event

	// delivered contains the IDs of all delivered events.
	delivered map[EventID]struct{}

	// lastDelivered is the largest delivered timestamp. Timestamps start
	// at 1 so zero means nothing has been delivered.
	lastDelivered uint64

	metrics *Metrics

	logger log.Logger
}

func NewOrderer(conf *Config, metrics *Metrics, logger log.Logger) *Orderer {
	return &Orderer{
		maxTTL:      conf.MaxTTL,
		paperPolicy: conf.PaperPolicy,
		received:    make(map[EventID]Event),
		delivered:   make(map[EventID]struct{}),
		metrics:     metrics,
		logger:      logger.WithSubsystem("epto"),
	}
}

// Order processes the events relayed in the last round and returns the
// events that can now be delivered, in delivery order.
func (o *Orderer) Order(ball []Event) []Event {
	for id, e := range o.received {
		e.TTL++
		o.received[id] = e
	}

	for _, e := range ball {
		if _, ok := o.delivered[e.ID]; ok {
			o.metrics.EventsRejected.Inc()
			continue
		}
		if !o.admit(e.Timestamp) {
			o.metrics.EventsRejected.Inc()
			o.logger.Debug(
				"rejected late event",
				zap.String("event", e.ID.String()),
				zap.Uint64("timestamp", e.Timestamp),
				zap.Uint64("last-delivered", o.lastDelivered),
			)
			continue
		}
		if existing, ok := o.received[e.ID]; ok && existing.TTL >= e.TTL {
			continue
		}
		o.received[e.ID] = e
	}

	minTimestamp := uint64(math.MaxUint64)
	var deliverable []Event
	for _, e := range o.received {
		if e.TTL > o.maxTTL {
			deliverable = append(deliverable, e)
		} else if e.Timestamp < minTimestamp {
			minTimestamp = e.Timestamp
		}
	}

	var ready []Event
	for _, e := range deliverable {
		if o.hold(e.Timestamp, minTimestamp) {
			continue
		}
		ready = append(ready, e)
	}
	SortEvents(ready)

	for _, e := range ready {
		delete(o.received, e.ID)
		o.delivered[e.ID] = struct{}{}
		o.lastDelivered = e.Timestamp

		o.logger.Debug(
			"delivered",
			zap.String("event", e.ID.String()),
			zap.String("action", e.Action.String()),
			zap.Uint64("timestamp", e.Timestamp),
		)
	}

	o.metrics.EventsDelivered.Add(float64(len(ready)))
	o.metrics.ReceivedEvents.Set(float64(len(o.received)))

	return ready
}

// Received returns the number of events waiting to be delivered.
func (o *Orderer) Received() int {
	return len(o.received)
}

// Delivered returns the number of delivered events.
func (o *Orderer) Delivered() int {
	return len(o.delivered)
}

// LastDelivered returns the largest delivered timestamp, or zero if no events
// have been delivered.
func (o *Orderer) LastDelivered() uint64 {
	return o.lastDelivered
}

// admit returns whether an undelivered event with the given timestamp can be
// added to the received set.
func (o *Orderer) admit(ts uint64) bool {
	if o.paperPolicy {
		return ts >= o.lastDelivered
	}
	return ts > o.lastDelivered
}

// hold returns whether a deliverable event must wait as an event with the
// given minimum timestamp may still be delivered.
func (o *Orderer) hold(ts uint64, minTimestamp uint64) bool {
	if o.paperPolicy {
		return ts > minTimestamp
	}
	return ts >= minTimestamp
}
