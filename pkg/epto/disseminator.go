package epto

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/log"
)

// Disseminator stamps locally broadcast events and collects the events to
// relay in the next round.
type Disseminator struct {
	nodeID string

	maxTTL uint32

	clock Clock

	// nextBall contains the events to relay in the next round.
	nextBall *Ball

	// nextSeq is the sequence number of the next local event.
	nextSeq uint64

	metrics *Metrics

	logger log.Logger
}

func NewDisseminator(
	nodeID string,
	conf *Config,
	metrics *Metrics,
	logger log.Logger,
) *Disseminator {
	return &Disseminator{
		nodeID:   nodeID,
		maxTTL:   conf.MaxTTL,
		nextBall: NewBall(),
		metrics:  metrics,
		logger:   logger.WithSubsystem("epto"),
	}
}

// Broadcast creates a new local event with the given action and adds it to
// the next ball.
func (d *Disseminator) Broadcast(action Action) Event {
	e := Event{
		ID: EventID{
			Source: d.nodeID,
			Seq:    d.nextSeq,
		},
		Action:    action,
		Timestamp: d.clock.Next(),
		TTL:       0,
	}
	d.nextSeq++

	d.nextBall.Add(e)

	d.metrics.EventsBroadcast.Inc()
	d.metrics.LogicalClock.Set(float64(d.clock.Value()))

	d.logger.Debug(
		"broadcast",
		zap.String("event", e.ID.String()),
		zap.String("action", e.Action.String()),
		zap.Uint64("timestamp", e.Timestamp),
	)

	return e
}

// HandleBall adds the events received from another node to the next ball,
// unless they've been relayed for MaxTTL rounds, and updates the clock.
func (d *Disseminator) HandleBall(events []Event) {
	d.metrics.BallsInbound.Inc()

	for _, e := range events {
		if e.TTL < d.maxTTL {
			d.nextBall.Add(e)
			d.metrics.BallEventsInbound.With(
				prometheus.Labels{"expired": "false"},
			).Inc()
		} else {
			d.metrics.BallEventsInbound.With(
				prometheus.Labels{"expired": "true"},
			).Inc()
		}
		d.clock.Observe(e.Timestamp)
	}

	d.metrics.LogicalClock.Set(float64(d.clock.Value()))
}

// Round increments the TTL of the events in the next ball, then returns and
// clears the ball.
//
// The caller relays the returned events to its peers (if not empty) and
// passes them to the Orderer.
func (d *Disseminator) Round() []Event {
	d.nextBall.IncrementTTL()
	return d.nextBall.Drain()
}

// Clock returns the current logical clock.
func (d *Disseminator) Clock() uint64 {
	return d.clock.Value()
}

// BallLen returns the number of events in the next ball.
func (d *Disseminator) BallLen() int {
	return d.nextBall.Len()
}
