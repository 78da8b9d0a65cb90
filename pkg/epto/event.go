package epto

import (
	"fmt"
	"sort"
)

// Action is an opaque application action carried by an event.
type Action uint8

const (
	ActionDo Action = iota + 1
	ActionDont
)

func (a Action) String() string {
	switch a {
	case ActionDo:
		return "do"
	case ActionDont:
		return "dont"
	default:
		return "unknown"
	}
}

// EventID uniquely identifies an event.
type EventID struct {
	// Source is the ID of the node that broadcast the event.
	Source string `json:"source" codec:"source"`
	// Seq is the sequence number of the event on the source node.
	Seq uint64 `json:"seq" codec:"seq"`
}

func (id EventID) String() string {
	return fmt.Sprintf("%s/%d", id.Source, id.Seq)
}

// Event is a broadcast event. Events are compared by ID only, the timestamp
// and TTL may differ between copies of the same event.
type Event struct {
	ID     EventID `json:"id" codec:"id"`
	Action Action  `json:"action" codec:"action"`

	// Timestamp is the logical clock of the source when the event was
	// broadcast.
	Timestamp uint64 `json:"timestamp" codec:"timestamp"`

	// TTL is the number of rounds the event has been relayed for. Note this
	// counts up rather than down.
	TTL uint32 `json:"ttl" codec:"ttl"`
}

// Before returns whether e is ordered before o in the delivery order.
func (e Event) Before(o Event) bool {
	if e.Timestamp != o.Timestamp {
		return e.Timestamp < o.Timestamp
	}
	if e.ID.Source != o.ID.Source {
		return e.ID.Source < o.ID.Source
	}
	return e.ID.Seq < o.ID.Seq
}

// SortEvents sorts the events into delivery order.
func SortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})
}
