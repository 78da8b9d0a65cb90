package epto

// Clock is a Lamport logical clock.
type Clock struct {
	value uint64
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() uint64 {
	c.value++
	return c.value
}

// Observe updates the clock with a timestamp seen from another node.
func (c *Clock) Observe(ts uint64) {
	if ts > c.value {
		c.value = ts
	}
}

func (c *Clock) Value() uint64 {
	return c.value
}
