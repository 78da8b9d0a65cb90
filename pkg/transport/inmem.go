package transport

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/andydunstall/epto/pkg/cyclon"
)

// Network is an in-memory network connecting nodes in the same process.
//
// Each attached node has an unbounded queue of inbound messages, delivered to
// its handler in order by a dedicated goroutine, so a sender never blocks.
// Detaching a node discards its queued messages, which simulates the node
// crashing.
type Network struct {
	endpoints map[string]*endpoint

	// mu protects the above fields.
	mu sync.Mutex

	dropped *atomic.Uint64
}

func NewNetwork() *Network {
	return &Network{
		endpoints: make(map[string]*endpoint),
		dropped:   atomic.NewUint64(0),
	}
}

// Attach registers the handler for messages to the given node ID.
func (n *Network) Attach(id string, h Handler) {
	e := newEndpoint(h)

	n.mu.Lock()
	existing, ok := n.endpoints[id]
	n.endpoints[id] = e
	n.mu.Unlock()

	if ok {
		existing.Close()
	}
	go e.Run()
}

// Detach removes the node with the given ID from the network. Any queued
// and future messages to the node are discarded.
func (n *Network) Detach(id string) {
	n.mu.Lock()
	e, ok := n.endpoints[id]
	delete(n.endpoints, id)
	n.mu.Unlock()

	if ok {
		n.dropped.Add(uint64(e.Close()))
	}
}

// Transport returns a Transport that sends messages on the network.
func (n *Network) Transport() Transport {
	return &inmemTransport{network: n}
}

// Dropped returns the number of messages that were discarded as the target
// node was not attached.
func (n *Network) Dropped() uint64 {
	return n.dropped.Load()
}

// Close detaches all nodes.
func (n *Network) Close() {
	n.mu.Lock()
	endpoints := n.endpoints
	n.endpoints = make(map[string]*endpoint)
	n.mu.Unlock()

	for _, e := range endpoints {
		e.Close()
	}
}

func (n *Network) send(to cyclon.Peer, msg *Message) error {
	n.mu.Lock()
	e, ok := n.endpoints[to.ID]
	n.mu.Unlock()

	if !ok || !e.Push(msg.Clone()) {
		n.dropped.Inc()
		return ErrUnknownPeer
	}
	return nil
}

type inmemTransport struct {
	network *Network
}

func (t *inmemTransport) Send(to cyclon.Peer, msg *Message) error {
	return t.network.send(to, msg)
}

var _ Transport = &inmemTransport{}

type endpoint struct {
	handler Handler

	queue  []*Message
	closed bool

	// mu protects the above fields.
	mu sync.Mutex

	// notifyCh is signalled when a message is queued.
	notifyCh chan struct{}

	shutdownCh chan struct{}
}

func newEndpoint(h Handler) *endpoint {
	return &endpoint{
		handler:    h,
		notifyCh:   make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
	}
}

// Push queues the message. Returns false if the endpoint is closed.
func (e *endpoint) Push(msg *Message) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, msg)
	e.mu.Unlock()

	select {
	case e.notifyCh <- struct{}{}:
	default:
	}
	return true
}

// Run delivers queued messages to the handler until closed.
func (e *endpoint) Run() {
	for {
		select {
		case <-e.notifyCh:
		case <-e.shutdownCh:
			return
		}

		for {
			e.mu.Lock()
			if e.closed || len(e.queue) == 0 {
				e.mu.Unlock()
				break
			}
			msg := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.mu.Unlock()

			e.handler(msg)
		}
	}
}

// Close stops delivering messages and returns the number of discarded
// messages.
func (e *endpoint) Close() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}
	e.closed = true
	close(e.shutdownCh)

	discarded := len(e.queue)
	e.queue = nil
	return discarded
}
