package epto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBall(t *testing.T) {
	t.Run("add keeps max ttl", func(t *testing.T) {
		b := NewBall()

		id := EventID{Source: "node-1", Seq: 1}
		assert.True(t, b.Add(Event{ID: id, Timestamp: 4, TTL: 2}))
		// Lower and equal TTL are ignored.
		assert.False(t, b.Add(Event{ID: id, Timestamp: 4, TTL: 1}))
		assert.False(t, b.Add(Event{ID: id, Timestamp: 4, TTL: 2}))
		assert.True(t, b.Add(Event{ID: id, Timestamp: 4, TTL: 5}))

		e, ok := b.Get(id)
		assert.True(t, ok)
		assert.Equal(t, uint32(5), e.TTL)
		assert.Equal(t, 1, b.Len())
	})

	t.Run("increment ttl", func(t *testing.T) {
		b := NewBall()
		b.Add(Event{ID: EventID{Source: "node-1", Seq: 1}, TTL: 0})
		b.Add(Event{ID: EventID{Source: "node-2", Seq: 1}, TTL: 3})

		b.IncrementTTL()

		events := b.Events()
		assert.Equal(t, uint32(1), events[0].TTL)
		assert.Equal(t, uint32(4), events[1].TTL)
	})

	t.Run("drain", func(t *testing.T) {
		b := NewBall()
		b.Add(Event{ID: EventID{Source: "node-2", Seq: 1}, Timestamp: 2})
		b.Add(Event{ID: EventID{Source: "node-1", Seq: 1}, Timestamp: 2})
		b.Add(Event{ID: EventID{Source: "node-3", Seq: 1}, Timestamp: 1})

		events := b.Drain()
		assert.Equal(t, []EventID{
			{Source: "node-3", Seq: 1},
			{Source: "node-1", Seq: 1},
			{Source: "node-2", Seq: 1},
		}, eventIDs(events))
		assert.Equal(t, 0, b.Len())
	})
}

func TestClock(t *testing.T) {
	var c Clock
	assert.Equal(t, uint64(1), c.Next())
	assert.Equal(t, uint64(2), c.Next())

	c.Observe(10)
	assert.Equal(t, uint64(10), c.Value())

	// Ignores older timestamps.
	c.Observe(4)
	assert.Equal(t, uint64(10), c.Value())

	assert.Equal(t, uint64(11), c.Next())
}

func eventIDs(events []Event) []EventID {
	ids := make([]EventID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
