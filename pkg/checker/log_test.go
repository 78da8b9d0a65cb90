package checker

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epto/pkg/epto"
)

func TestLog(t *testing.T) {
	t.Run("write and read", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLog(&buf)

		e1 := epto.Event{
			ID:        epto.EventID{Source: "b", Seq: 1},
			Action:    epto.ActionDo,
			Timestamp: 4,
			TTL:       16,
		}
		e2 := epto.Event{
			ID:        epto.EventID{Source: "a", Seq: 3},
			Action:    epto.ActionDont,
			Timestamp: 5,
		}
		require.NoError(t, l.Write("a", e1))
		require.NoError(t, l.Write("a", e2))
		require.NoError(t, l.Write("b", e1))

		assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

		records, err := ReadLog(&buf)
		require.NoError(t, err)
		assert.Equal(t, []Record{
			NewRecord("a", e1),
			NewRecord("a", e2),
			NewRecord("b", e1),
		}, records)

		sequences := GroupByNode(records)
		assert.Len(t, sequences["a"], 2)
		assert.Len(t, sequences["b"], 1)
		assert.Equal(t, e2.ID, sequences["a"][1].EventID())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ReadLog(strings.NewReader("{\"node\":\"a\"}\n\nfoo\n"))
		assert.ErrorContains(t, err, "line 3")
	})
}
