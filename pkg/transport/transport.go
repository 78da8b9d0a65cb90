// Package transport sends messages between nodes.
//
// Two transports are provided. Network is an in-memory network used to run
// a cluster of nodes in a single process, and Stream sends msgpack encoded
// messages over TCP.
//
// Sending is asynchronous. Messages are queued and Send returns immediately,
// so a node never blocks on another node.
package transport

import (
	"errors"

	"github.com/andydunstall/epto/pkg/cyclon"
)

var (
	// ErrUnknownPeer is returned when sending to a peer that isn't
	// reachable.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrQueueFull is returned when the outbound queue for a peer is full.
	ErrQueueFull = errors.New("queue full")

	// ErrClosed is returned when sending on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Transport sends messages to other nodes.
type Transport interface {
	// Send queues the message to send to the given peer. It does not block
	// waiting for the message to be delivered.
	Send(to cyclon.Peer, msg *Message) error
}

// Handler handles messages received from other nodes. Messages to a node are
// passed to its handler one at a time.
type Handler func(msg *Message)
