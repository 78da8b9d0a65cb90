package cyclon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/rng"
)

type fakeWatcher struct {
	added    []string
	evicted  []string
	timeouts []string
}

func (w *fakeWatcher) OnAdd(peer Peer) {
	w.added = append(w.added, peer.ID)
}

func (w *fakeWatcher) OnEvict(peer Peer) {
	w.evicted = append(w.evicted, peer.ID)
}

func (w *fakeWatcher) OnTimeout(peer Peer) {
	w.timeouts = append(w.timeouts, peer.ID)
}

var _ Watcher = &fakeWatcher{}

func newTestCyclon(t *testing.T, id string, capacity, sampleSize int) (*Cyclon, *fakeWatcher) {
	rnd, err := rng.New(rng.ModeEvolving, 1)
	require.NoError(t, err)

	watcher := &fakeWatcher{}
	conf := &Config{
		ViewCapacity:      capacity,
		ShuffleSampleSize: sampleSize,
	}
	return New(
		Peer{ID: id},
		conf,
		rnd,
		watcher,
		NewMetrics(),
		log.NewNopLogger(),
	), watcher
}

func TestCyclon_Join(t *testing.T) {
	c, watcher := newTestCyclon(t, "self", 2, 1)

	assert.False(t, c.Join(Peer{ID: "self"}))
	assert.True(t, c.Join(Peer{ID: "a"}))
	assert.False(t, c.Join(Peer{ID: "a"}))
	assert.True(t, c.Join(Peer{ID: "b"}))
	// Full.
	assert.False(t, c.Join(Peer{ID: "c"}))

	assert.Equal(t, []Entry{testEntry("a", 0), testEntry("b", 0)}, c.Entries())
	assert.Equal(t, []string{"a", "b"}, watcher.added)
}

func TestCyclon_Shuffle(t *testing.T) {
	t.Run("empty view", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 3, 2)

		_, _, ok := c.Shuffle()
		assert.False(t, ok)
		assert.Nil(t, c.Pending())
	})

	t.Run("shuffle with oldest", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 5, 3)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		target, req, ok := c.Shuffle()
		assert.True(t, ok)

		// Both peers have the same age so the first is selected.
		assert.Equal(t, "a", target.ID)
		assert.Equal(t, uint64(1), req.ID)
		assert.Equal(t, "self", req.Sender.ID)
		// The target is replaced by the local node with age 0.
		assert.Equal(t, []Entry{testEntry("b", 1), testEntry("self", 0)}, req.Sample)

		pending := c.Pending()
		require.NotNil(t, pending)
		assert.Equal(t, uint64(1), pending.ID)
		assert.Equal(t, "a", pending.Target.ID)
		assert.Equal(t, []Entry{testEntry("b", 1), testEntry("a", 1)}, pending.Sample)

		// Ages are incremented.
		assert.Equal(t, []Entry{testEntry("a", 1), testEntry("b", 1)}, c.Entries())
	})

	t.Run("timeout removes target", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 5, 3)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		target, _, ok := c.Shuffle()
		assert.True(t, ok)
		assert.Equal(t, "a", target.ID)

		// 'a' never replies.
		target, req, ok := c.Shuffle()
		assert.True(t, ok)
		assert.Equal(t, "b", target.ID)
		assert.Equal(t, uint64(2), req.ID)
		assert.Equal(t, []Entry{testEntry("self", 0)}, req.Sample)

		assert.Equal(t, []string{"a"}, watcher.timeouts)
		assert.Equal(t, []Entry{testEntry("b", 2)}, c.Entries())
	})

	t.Run("timeout empties view", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 5, 3)
		c.Join(Peer{ID: "a"})

		_, _, ok := c.Shuffle()
		assert.True(t, ok)

		_, _, ok = c.Shuffle()
		assert.False(t, ok)
		assert.Nil(t, c.Pending())
		assert.Empty(t, c.Entries())
	})
}

func TestCyclon_HandleRequest(t *testing.T) {
	c, _ := newTestCyclon(t, "self", 5, 3)
	c.Join(Peer{ID: "a"})
	c.Join(Peer{ID: "b"})

	reply := c.HandleRequest(&ShuffleRequest{
		ID:     4,
		Sender: Peer{ID: "x"},
		Sample: []Entry{testEntry("x", 0), testEntry("y", 3)},
	})
	assert.Equal(t, uint64(4), reply.ID)
	assert.Equal(t, "self", reply.Sender.ID)
	// The reply is sampled before merging the request.
	assert.ElementsMatch(t, []string{"a", "b"}, entryIDs(reply.Sample))

	assert.Equal(t, []Entry{
		testEntry("a", 0),
		testEntry("b", 0),
		testEntry("x", 0),
		testEntry("y", 3),
	}, c.Entries())
}

func TestCyclon_HandleReply(t *testing.T) {
	t.Run("replaces sent entries", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 3, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})
		c.Join(Peer{ID: "c"})

		target, req, ok := c.Shuffle()
		assert.True(t, ok)
		assert.Equal(t, "a", target.ID)

		c.HandleReply(&ShuffleReply{
			ID:     req.ID,
			Sender: target,
			Sample: []Entry{testEntry("d", 0), testEntry("e", 0)},
		})

		ids := entryIDs(c.Entries())
		assert.Len(t, ids, 3)
		assert.Contains(t, ids, "d")
		assert.Contains(t, ids, "e")
		assert.NotContains(t, ids, "a")
		assert.Len(t, watcher.evicted, 2)
		assert.Contains(t, watcher.evicted, "a")

		assert.Nil(t, c.Pending())
	})

	t.Run("stale reply", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 3, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		_, req, ok := c.Shuffle()
		assert.True(t, ok)

		c.HandleReply(&ShuffleReply{
			ID:     req.ID + 10,
			Sender: Peer{ID: "x"},
			Sample: []Entry{testEntry("c", 0), testEntry("d", 0)},
		})

		// Only added while there is space.
		assert.Equal(
			t, []string{"a", "b", "c"}, entryIDs(c.Entries()),
		)
		// The pending shuffle is still outstanding.
		assert.NotNil(t, c.Pending())
	})
}

func TestCyclon_Merge(t *testing.T) {
	t.Run("ignores self and known", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 3, 2)
		c.Join(Peer{ID: "a"})

		c.merge([]Entry{testEntry("self", 0), testEntry("a", 5)}, nil)
		assert.Equal(t, []Entry{testEntry("a", 0)}, c.Entries())
	})

	t.Run("candidates exhausted", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 2, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		c.merge(
			[]Entry{testEntry("c", 1), testEntry("d", 1)},
			[]Entry{testEntry("a", 0)},
		)
		// 'd' is dropped as there are no candidates left.
		assert.Equal(t, []Entry{testEntry("c", 1), testEntry("b", 0)}, c.Entries())
		assert.Equal(t, []string{"a"}, watcher.evicted)
	})

	t.Run("candidate no longer in view", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 2, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		c.merge(
			[]Entry{testEntry("c", 1)},
			[]Entry{testEntry("x", 0), testEntry("b", 0)},
		)
		// 'c' is dropped rather than trying the next candidate.
		assert.Equal(t, []Entry{testEntry("a", 0), testEntry("b", 0)}, c.Entries())
		assert.Empty(t, watcher.evicted)
	})

	t.Run("candidate no longer in view drops remaining", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 2, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		c.merge(
			[]Entry{testEntry("c", 1), testEntry("d", 2)},
			[]Entry{testEntry("x", 0), testEntry("b", 0)},
		)
		assert.Equal(t, []Entry{testEntry("a", 0), testEntry("b", 0)}, c.Entries())
		assert.Empty(t, watcher.evicted)
	})

	t.Run("candidate removed after first replace", func(t *testing.T) {
		c, watcher := newTestCyclon(t, "self", 2, 2)
		c.Join(Peer{ID: "a"})
		c.Join(Peer{ID: "b"})

		c.merge(
			[]Entry{testEntry("c", 1), testEntry("d", 2)},
			[]Entry{testEntry("a", 0), testEntry("x", 0), testEntry("b", 0)},
		)
		// 'c' replaces 'a', then 'd' is dropped as 'x' isn't in the view.
		assert.Equal(t, []Entry{testEntry("c", 1), testEntry("b", 0)}, c.Entries())
		assert.Equal(t, []string{"a"}, watcher.evicted)
	})

	t.Run("idempotent", func(t *testing.T) {
		c, _ := newTestCyclon(t, "self", 3, 2)
		c.Join(Peer{ID: "a"})

		sample := []Entry{testEntry("b", 1), testEntry("c", 2), testEntry("d", 3)}
		c.merge(sample, nil)
		first := c.Entries()
		c.merge(sample, nil)
		assert.Equal(t, first, c.Entries())
	})
}

// TestCyclon_Cluster runs synchronous shuffles between a cluster of nodes
// that all join the same node, and checks the view invariants hold.
func TestCyclon_Cluster(t *testing.T) {
	const numNodes = 10
	const capacity = 4

	nodes := make(map[string]*Cyclon)
	var ids []string
	for i := 0; i != numNodes; i++ {
		id := fmt.Sprintf("node-%d", i)
		rnd, err := rng.New(rng.ModeEvolving, int64(i))
		require.NoError(t, err)
		nodes[id] = New(
			Peer{ID: id},
			&Config{ViewCapacity: capacity, ShuffleSampleSize: 3},
			rnd,
			nil,
			NewMetrics(),
			log.NewNopLogger(),
		)
		ids = append(ids, id)
	}
	for _, id := range ids[1:] {
		nodes[id].Join(Peer{ID: ids[0]})
	}

	for round := 0; round != 50; round++ {
		for _, id := range ids {
			target, req, ok := nodes[id].Shuffle()
			if !ok {
				continue
			}
			reply := nodes[target.ID].HandleRequest(req)
			nodes[id].HandleReply(reply)
		}

		for _, id := range ids {
			entries := nodes[id].Entries()
			assert.LessOrEqual(t, len(entries), capacity)

			seen := make(map[string]struct{})
			for _, e := range entries {
				assert.NotEqual(t, id, e.Peer.ID)
				_, dup := seen[e.Peer.ID]
				assert.False(t, dup)
				seen[e.Peer.ID] = struct{}{}
			}
		}
	}

	// With no failures views only grow, so every view fills.
	for _, id := range ids {
		assert.Len(t, nodes[id].Entries(), capacity)
	}
}
