package node

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andydunstall/epto/pkg/cyclon"
	pkgstatus "github.com/andydunstall/epto/pkg/status"
	"github.com/andydunstall/epto/server/status"
)

// ViewStatus is a snapshot of the nodes membership view.
type ViewStatus struct {
	ID string `json:"id" yaml:"id"`

	Entries []cyclon.Entry `json:"entries" yaml:"entries"`

	Pending *cyclon.PendingShuffle `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// OrderingStatus is a snapshot of the nodes broadcast and ordering state.
type OrderingStatus struct {
	ID string `json:"id" yaml:"id"`

	Started bool `json:"started" yaml:"started"`

	// Clock is the nodes logical clock.
	Clock uint64 `json:"clock" yaml:"clock"`

	// BallSize is the number of events waiting to be relayed in the next
	// round.
	BallSize int `json:"ball_size" yaml:"ball_size"`

	// Received is the number of received events waiting to be delivered.
	Received int `json:"received" yaml:"received"`

	// Delivered is the number of delivered event IDs remembered.
	Delivered int `json:"delivered" yaml:"delivered"`

	LastDeliveredTimestamp uint64 `json:"last_delivered_timestamp" yaml:"last_delivered_timestamp"`
}

// View returns a snapshot of the nodes view.
func (n *Node) View(ctx context.Context) (*ViewStatus, error) {
	var s *ViewStatus
	if err := n.call(ctx, func() {
		s = n.viewStatus()
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Ordering returns a snapshot of the nodes ordering state.
func (n *Node) Ordering(ctx context.Context) (*OrderingStatus, error) {
	var s *OrderingStatus
	if err := n.call(ctx, func() {
		s = n.orderingStatus()
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (n *Node) viewStatus() *ViewStatus {
	return &ViewStatus{
		ID:      n.self.ID,
		Entries: n.membership.Entries(),
		Pending: n.membership.Pending(),
	}
}

func (n *Node) orderingStatus() *OrderingStatus {
	return &OrderingStatus{
		ID:                     n.self.ID,
		Started:                n.started,
		Clock:                  n.disseminator.Clock(),
		BallSize:               n.disseminator.BallLen(),
		Received:               n.orderer.Received(),
		Delivered:              n.orderer.Delivered(),
		LastDeliveredTimestamp: n.orderer.LastDelivered(),
	}
}

// Status exposes the node state in the status API.
type Status struct {
	node *Node
}

func NewStatus(node *Node) *Status {
	return &Status{
		node: node,
	}
}

func (s *Status) Register(group *gin.RouterGroup) {
	group.GET("/view", s.viewRoute)
	group.GET("/ordering", s.orderingRoute)
}

func (s *Status) viewRoute(c *gin.Context) {
	view, err := s.node.View(c.Request.Context())
	if err != nil {
		c.JSON(
			http.StatusServiceUnavailable,
			pkgstatus.NewErrorInfo(http.StatusServiceUnavailable, err),
		)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Status) orderingRoute(c *gin.Context) {
	ordering, err := s.node.Ordering(c.Request.Context())
	if err != nil {
		c.JSON(
			http.StatusServiceUnavailable,
			pkgstatus.NewErrorInfo(http.StatusServiceUnavailable, err),
		)
		return
	}
	c.JSON(http.StatusOK, ordering)
}

var _ status.Handler = &Status{}
