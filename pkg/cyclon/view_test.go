package cyclon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epto/pkg/rng"
)

func testEntry(id string, age uint64) Entry {
	return Entry{Peer: Peer{ID: id}, Age: age}
}

func entryIDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Peer.ID)
	}
	return ids
}

func TestView(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		v := NewView(2)
		assert.True(t, v.Add(testEntry("a", 0)))
		// Duplicate.
		assert.False(t, v.Add(testEntry("a", 3)))
		assert.True(t, v.Add(testEntry("b", 0)))
		// Full.
		assert.False(t, v.Add(testEntry("c", 0)))

		assert.Equal(t, []string{"a", "b"}, entryIDs(v.Entries()))
		assert.True(t, v.Full())
	})

	t.Run("replace keeps position", func(t *testing.T) {
		v := NewView(3)
		v.Add(testEntry("a", 0))
		v.Add(testEntry("b", 0))
		v.Add(testEntry("c", 0))

		assert.True(t, v.Replace("b", testEntry("d", 4)))
		assert.Equal(t, []string{"a", "d", "c"}, entryIDs(v.Entries()))
		assert.False(t, v.Contains("b"))

		// Unknown peer.
		assert.False(t, v.Replace("b", testEntry("e", 0)))
		// Already contains the new peer.
		assert.False(t, v.Replace("a", testEntry("c", 0)))
	})

	t.Run("remove", func(t *testing.T) {
		v := NewView(3)
		v.Add(testEntry("a", 0))
		v.Add(testEntry("b", 0))
		v.Add(testEntry("c", 0))

		assert.True(t, v.Remove("a"))
		assert.False(t, v.Remove("a"))
		assert.Equal(t, []string{"b", "c"}, entryIDs(v.Entries()))

		// Index must be updated after removing.
		assert.True(t, v.Replace("c", testEntry("d", 0)))
		assert.Equal(t, []string{"b", "d"}, entryIDs(v.Entries()))
	})

	t.Run("oldest", func(t *testing.T) {
		v := NewView(4)
		_, ok := v.Oldest()
		assert.False(t, ok)

		v.Add(testEntry("a", 1))
		v.Add(testEntry("b", 3))
		v.Add(testEntry("c", 3))
		v.Add(testEntry("d", 2))

		// Ties select the first.
		oldest, ok := v.Oldest()
		assert.True(t, ok)
		assert.Equal(t, "b", oldest.Peer.ID)

		v.IncrementAge()
		oldest, _ = v.Oldest()
		assert.Equal(t, uint64(4), oldest.Age)
	})

	t.Run("sample", func(t *testing.T) {
		rnd, err := rng.New(rng.ModeEvolving, 1)
		require.NoError(t, err)

		v := NewView(4)
		v.Add(testEntry("a", 0))
		v.Add(testEntry("b", 0))
		v.Add(testEntry("c", 0))
		v.Add(testEntry("d", 0))

		for i := 0; i != 20; i++ {
			sample := v.Sample(rnd, 2, "b")
			assert.Len(t, sample, 2)
			assert.NotContains(t, entryIDs(sample), "b")
			assert.NotEqual(t, sample[0].Peer.ID, sample[1].Peer.ID)
		}

		// Larger than the view returns all entries.
		assert.ElementsMatch(
			t, []string{"a", "c", "d"}, entryIDs(v.Sample(rnd, 10, "b")),
		)
		assert.Empty(t, v.Sample(rnd, 0, ""))
	})
}
