package cyclon

import (
	"github.com/andydunstall/epto/pkg/rng"
)

// Peer identifies a node.
type Peer struct {
	// ID is a unique identifier for the node.
	ID string `json:"id" codec:"id"`

	// Addr is the address to send messages to the node. May be empty when
	// the transport routes by ID.
	Addr string `json:"addr,omitempty" codec:"addr"`
}

// Entry is a peer in the view.
type Entry struct {
	Peer Peer `json:"peer" codec:"peer"`

	// Age is the number of shuffle periods since the entry was added.
	Age uint64 `json:"age" codec:"age"`
}

// View is a bounded set of peers. Entries are kept in insertion order, and a
// replaced entry keeps its position, so iteration order is deterministic.
type View struct {
	capacity int

	entries []Entry

	// index maps peer ID to the entries index.
	index map[string]int
}

func NewView(capacity int) *View {
	return &View{
		capacity: capacity,
		index:    make(map[string]int),
	}
}

func (v *View) Len() int {
	return len(v.entries)
}

func (v *View) Capacity() int {
	return v.capacity
}

func (v *View) Full() bool {
	return len(v.entries) >= v.capacity
}

func (v *View) Contains(id string) bool {
	_, ok := v.index[id]
	return ok
}

// Add adds the entry if the view isn't full and doesn't already contain the
// peer.
func (v *View) Add(e Entry) bool {
	if v.Full() || v.Contains(e.Peer.ID) {
		return false
	}
	v.index[e.Peer.ID] = len(v.entries)
	v.entries = append(v.entries, e)
	return true
}

// Replace replaces the peer with the given ID with the entry, keeping the
// same position.
func (v *View) Replace(id string, e Entry) bool {
	i, ok := v.index[id]
	if !ok || v.Contains(e.Peer.ID) {
		return false
	}
	delete(v.index, id)
	v.entries[i] = e
	v.index[e.Peer.ID] = i
	return true
}

func (v *View) Remove(id string) bool {
	i, ok := v.index[id]
	if !ok {
		return false
	}
	v.entries = append(v.entries[:i], v.entries[i+1:]...)
	delete(v.index, id)
	for j := i; j != len(v.entries); j++ {
		v.index[v.entries[j].Peer.ID] = j
	}
	return true
}

// IncrementAge increments the age of every entry.
func (v *View) IncrementAge() {
	for i := range v.entries {
		v.entries[i].Age++
	}
}

// Oldest returns the entry with the largest age. If multiple entries have
// the same age, the first is returned.
func (v *View) Oldest() (Entry, bool) {
	if len(v.entries) == 0 {
		return Entry{}, false
	}
	oldest := v.entries[0]
	for _, e := range v.entries[1:] {
		if e.Age > oldest.Age {
			oldest = e
		}
	}
	return oldest, true
}

// Sample returns a random subset of up to n entries, excluding the peer with
// the exclude ID.
func (v *View) Sample(rnd rng.Source, n int, exclude string) []Entry {
	candidates := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		if e.Peer.ID == exclude {
			continue
		}
		candidates = append(candidates, e)
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return nil
	}

	sample := make([]Entry, 0, n)
	for _, i := range rnd.Perm(len(candidates))[:n] {
		sample = append(sample, candidates[i])
	}
	return sample
}

// Entries returns a copy of the entries in the view.
func (v *View) Entries() []Entry {
	entries := make([]Entry, len(v.entries))
	copy(entries, v.entries)
	return entries
}
