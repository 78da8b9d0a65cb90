package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	t.Run("reseed repeats", func(t *testing.T) {
		s, err := New(ModeReseed, 5)
		require.NoError(t, err)

		first := s.Perm(10)
		for i := 0; i != 5; i++ {
			assert.Equal(t, first, s.Perm(10))
		}
	})

	t.Run("evolving is deterministic", func(t *testing.T) {
		s1, err := New(ModeEvolving, 5)
		require.NoError(t, err)
		s2, err := New(ModeEvolving, 5)
		require.NoError(t, err)

		for i := 0; i != 5; i++ {
			assert.Equal(t, s1.Perm(10), s2.Perm(10))
			assert.Equal(t, s1.Intn(100), s2.Intn(100))
		}
	})

	t.Run("evolving changes", func(t *testing.T) {
		s, err := New(ModeEvolving, 5)
		require.NoError(t, err)

		first := s.Perm(20)
		changed := false
		for i := 0; i != 10; i++ {
			if !assert.ObjectsAreEqual(first, s.Perm(20)) {
				changed = true
			}
		}
		assert.True(t, changed)
	})

	t.Run("unsupported mode", func(t *testing.T) {
		_, err := New("foo", 5)
		assert.Error(t, err)
	})
}

func TestDerive(t *testing.T) {
	assert.Equal(t, Derive(10, "node-1"), Derive(10, "node-1"))
	assert.NotEqual(t, Derive(10, "node-1"), Derive(10, "node-2"))
	assert.NotEqual(t, Derive(10, "node-1"), Derive(11, "node-1"))
}

func TestConfig(t *testing.T) {
	conf := Config{Mode: ModeReseed}
	assert.NoError(t, conf.Validate())

	conf.Mode = ""
	assert.Error(t, conf.Validate())

	conf.Mode = "foo"
	assert.Error(t, conf.Validate())
}
