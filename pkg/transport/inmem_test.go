package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
)

type fakeHandler struct {
	messages []*Message
	mu       sync.Mutex
}

func (h *fakeHandler) Handle(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *fakeHandler) Messages() []*Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Message(nil), h.messages...)
}

func TestNetwork(t *testing.T) {
	t.Run("send", func(t *testing.T) {
		network := NewNetwork()
		defer network.Close()

		var handler fakeHandler
		network.Attach("node-2", handler.Handle)

		from := cyclon.Peer{ID: "node-1"}
		tr := network.Transport()
		for i := 0; i != 10; i++ {
			require.NoError(t, tr.Send(cyclon.Peer{ID: "node-2"}, NewBall(from, []epto.Event{
				{ID: epto.EventID{Source: "node-1", Seq: uint64(i)}},
			})))
		}

		require.Eventually(t, func() bool {
			return len(handler.Messages()) == 10
		}, time.Second, time.Millisecond)

		// Messages from the same sender are delivered in order.
		for i, msg := range handler.Messages() {
			assert.Equal(t, MessageTypeBall, msg.Type)
			assert.Equal(t, uint64(i), msg.Ball[0].ID.Seq)
		}
	})

	t.Run("copies messages", func(t *testing.T) {
		network := NewNetwork()
		defer network.Close()

		var handler fakeHandler
		network.Attach("node-2", handler.Handle)

		events := []epto.Event{{ID: epto.EventID{Source: "node-1"}, TTL: 1}}
		require.NoError(t, network.Transport().Send(
			cyclon.Peer{ID: "node-2"}, NewBall(cyclon.Peer{ID: "node-1"}, events),
		))
		events[0].TTL = 5

		require.Eventually(t, func() bool {
			return len(handler.Messages()) == 1
		}, time.Second, time.Millisecond)
		assert.Equal(t, uint32(1), handler.Messages()[0].Ball[0].TTL)
	})

	t.Run("unknown peer", func(t *testing.T) {
		network := NewNetwork()
		defer network.Close()

		err := network.Transport().Send(
			cyclon.Peer{ID: "node-2"}, NewBall(cyclon.Peer{ID: "node-1"}, nil),
		)
		assert.ErrorIs(t, err, ErrUnknownPeer)
		assert.Equal(t, uint64(1), network.Dropped())
	})

	t.Run("detach", func(t *testing.T) {
		network := NewNetwork()
		defer network.Close()

		var handler fakeHandler
		network.Attach("node-2", handler.Handle)
		network.Detach("node-2")

		err := network.Transport().Send(
			cyclon.Peer{ID: "node-2"}, NewBall(cyclon.Peer{ID: "node-1"}, nil),
		)
		assert.ErrorIs(t, err, ErrUnknownPeer)
		assert.Empty(t, handler.Messages())
	})
}
