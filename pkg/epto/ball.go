package epto

// Ball is a set of events keyed by event ID. When two copies of the same
// event are added, the copy with the larger TTL is kept.
type Ball struct {
	events map[EventID]Event
}

func NewBall() *Ball {
	return &Ball{
		events: make(map[EventID]Event),
	}
}

// Add adds the event to the ball. Returns true if the event replaced or was
// added to the ball.
func (b *Ball) Add(e Event) bool {
	existing, ok := b.events[e.ID]
	if ok && existing.TTL >= e.TTL {
		return false
	}
	b.events[e.ID] = e
	return true
}

func (b *Ball) Get(id EventID) (Event, bool) {
	e, ok := b.events[id]
	return e, ok
}

func (b *Ball) Len() int {
	return len(b.events)
}

// IncrementTTL increments the TTL of every event in the ball.
func (b *Ball) IncrementTTL() {
	for id, e := range b.events {
		e.TTL++
		b.events[id] = e
	}
}

// Events returns the events in the ball in delivery order.
func (b *Ball) Events() []Event {
	events := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		events = append(events, e)
	}
	SortEvents(events)
	return events
}

// Drain returns the events in the ball, in delivery order, and empties the
// ball.
func (b *Ball) Drain() []Event {
	events := b.Events()
	b.events = make(map[EventID]Event)
	return events
}
