package client

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epto/node"
	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/status"
	"github.com/andydunstall/epto/pkg/transport"
)

func TestNode(t *testing.T) {
	network := transport.NewNetwork()
	defer network.Close()

	conf := node.Default()
	conf.Generate.Interval = 0
	// Avoid shuffling with the unknown peer.
	conf.Membership.ShufflePeriod = time.Hour
	n, err := node.New(cyclon.Peer{ID: "a"}, conf, network.Transport())
	require.NoError(t, err)
	defer n.Close()

	n.Join(cyclon.Peer{ID: "b"})
	_, err = n.Broadcast(context.Background(), epto.ActionDo)
	require.NoError(t, err)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	node.NewStatus(n).Register(router.Group("/status/node"))
	server := httptest.NewServer(router)
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := NewNode(NewClient(u))

	t.Run("view", func(t *testing.T) {
		view, err := client.View(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", view.ID)
		require.Len(t, view.Entries, 1)
		assert.Equal(t, "b", view.Entries[0].Peer.ID)
	})

	t.Run("ordering", func(t *testing.T) {
		ordering, err := client.Ordering(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", ordering.ID)
		assert.Equal(t, uint64(1), ordering.Clock)
		assert.Equal(t, 1, ordering.BallSize)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := NewClient(u).Request(context.Background(), "/status/unknown")
		var errorInfo *status.ErrorInfo
		require.ErrorAs(t, err, &errorInfo)
		assert.Equal(t, 404, errorInfo.StatusCode)
	})

	t.Run("closed", func(t *testing.T) {
		n.Close()

		_, err := client.View(context.Background())
		var errorInfo *status.ErrorInfo
		require.ErrorAs(t, err, &errorInfo)
		assert.Equal(t, 503, errorInfo.StatusCode)
		assert.Equal(t, "node closed", errorInfo.Message)
	})
}
