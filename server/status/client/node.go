package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andydunstall/epto/node"
)

type Node struct {
	client *Client
}

func NewNode(client *Client) *Node {
	return &Node{
		client: client,
	}
}

func (n *Node) View(ctx context.Context) (*node.ViewStatus, error) {
	r, err := n.client.Request(ctx, "/status/node/view")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var view node.ViewStatus
	if err := json.NewDecoder(r).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &view, nil
}

func (n *Node) Ordering(ctx context.Context) (*node.OrderingStatus, error) {
	r, err := n.client.Request(ctx, "/status/node/ordering")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var ordering node.OrderingStatus
	if err := json.NewDecoder(r).Decode(&ordering); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ordering, nil
}
