// Package node runs a node, composing Cyclon membership with EpTO
// dissemination and ordering.
//
// Each node runs a single goroutine that processes one inbound message, timer
// or local request at a time, so the protocol state needs no locking.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/rng"
	"github.com/andydunstall/epto/pkg/transport"
)

const (
	messageQueueSize = 1024
	requestQueueSize = 64
)

var (
	// ErrClosed is returned when calling a closed node.
	ErrClosed = errors.New("node closed")
)

// Node is a member of the cluster that broadcasts and delivers events.
type Node struct {
	self cyclon.Peer

	conf *Config

	membership   *cyclon.Cyclon
	disseminator *epto.Disseminator
	orderer      *epto.Orderer

	transport transport.Transport

	rnd rng.Source

	onDeliver DeliverFunc

	// joined is set once the node has received a join hint.
	joined bool
	// started is set once Start has been called.
	started bool

	shuffleTimer  *time.Timer
	roundTimer    *time.Timer
	generateTimer *time.Timer

	messageCh chan *transport.Message
	requestCh chan func()

	metrics *Metrics

	logger log.Logger

	closed     *atomic.Bool
	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// New creates a node with the given identity that sends messages using the
// given transport.
//
// Returns an error if the configuration is invalid.
func New(
	self cyclon.Peer,
	conf *Config,
	t transport.Transport,
	opts ...Option,
) (*Node, error) {
	n, err := newNode(self, conf, t, opts...)
	if err != nil {
		return nil, err
	}
	go n.run()
	return n, nil
}

func newNode(
	self cyclon.Peer,
	conf *Config,
	t transport.Transport,
	opts ...Option,
) (*Node, error) {
	if self.ID == "" {
		return nil, fmt.Errorf("invalid config: missing node id")
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := defaultOptions()
	for _, o := range opts {
		o.apply(&options)
	}

	seed := rng.Derive(conf.Rand.Seed, self.ID)
	if options.seed != nil {
		seed = *options.seed
	}
	rnd, err := rng.New(conf.Rand.Mode, seed)
	if err != nil {
		return nil, fmt.Errorf("invalid config: rand: %w", err)
	}

	logger := options.logger.With(zap.String("node-id", self.ID))
	metrics := newMetrics()

	return &Node{
		self: self,
		conf: conf,
		membership: cyclon.New(
			self,
			&conf.Membership,
			rnd,
			options.watcher,
			metrics.Membership,
			logger,
		),
		disseminator: epto.NewDisseminator(
			self.ID,
			&conf.Broadcast,
			metrics.Broadcast,
			logger,
		),
		orderer: epto.NewOrderer(
			&conf.Broadcast,
			metrics.Broadcast,
			logger,
		),
		transport:  t,
		rnd:        rnd,
		onDeliver:  options.onDeliver,
		messageCh:  make(chan *transport.Message, messageQueueSize),
		requestCh:  make(chan func(), requestQueueSize),
		metrics:    metrics,
		logger:     logger.WithSubsystem("node"),
		closed:     atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.self.ID
}

// Peer returns the local node identity.
func (n *Node) Peer() cyclon.Peer {
	return n.self
}

// Join adds the given member to the nodes view and starts shuffling.
func (n *Node) Join(hint cyclon.Peer) {
	n.exec(func() {
		n.join(hint)
	})
}

// Start starts relaying, delivering and generating events.
func (n *Node) Start() {
	n.exec(func() {
		if n.started {
			return
		}
		n.started = true
		n.logger.Info("started")
	})
}

// Broadcast broadcasts a new event with the given action.
func (n *Node) Broadcast(ctx context.Context, action epto.Action) (epto.Event, error) {
	var e epto.Event
	if err := n.call(ctx, func() {
		e = n.disseminator.Broadcast(action)
	}); err != nil {
		return epto.Event{}, err
	}
	return e, nil
}

// HandleMessage queues a message received from another node.
func (n *Node) HandleMessage(msg *transport.Message) {
	select {
	case n.messageCh <- msg:
	case <-n.shutdownCh:
	}
}

func (n *Node) Metrics() *Metrics {
	return n.metrics
}

// Close stops the node. Any queued messages are discarded.
func (n *Node) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		// Already closed.
		return
	}
	close(n.shutdownCh)
	<-n.doneCh
}

func (n *Node) run() {
	defer close(n.doneCh)
	defer n.stopTimers()

	for {
		select {
		case msg := <-n.messageCh:
			n.handleMessage(msg)
		case f := <-n.requestCh:
			f()
		case <-timerCh(n.shuffleTimer):
			n.shuffleTimer = nil
			n.shuffle()
		case <-timerCh(n.roundTimer):
			n.roundTimer = nil
			n.round()
		case <-timerCh(n.generateTimer):
			n.generateTimer = nil
			n.generate()
		case <-n.shutdownCh:
			return
		}

		n.armTimers()
	}
}

func (n *Node) handleMessage(msg *transport.Message) {
	switch msg.Type {
	case transport.MessageTypeJoinHint:
		if msg.JoinHint != nil {
			n.join(*msg.JoinHint)
		}
	case transport.MessageTypeShuffleRequest:
		if msg.ShuffleRequest == nil {
			return
		}
		reply := n.membership.HandleRequest(msg.ShuffleRequest)
		n.send(
			msg.ShuffleRequest.Sender,
			transport.NewShuffleReply(n.self, reply),
		)
	case transport.MessageTypeShuffleReply:
		if msg.ShuffleReply != nil {
			n.membership.HandleReply(msg.ShuffleReply)
		}
	case transport.MessageTypeBall:
		n.disseminator.HandleBall(msg.Ball)
	default:
		n.logger.Warn(
			"unsupported message type",
			zap.String("type", msg.Type.String()),
			zap.String("from", msg.From.ID),
		)
	}
}

func (n *Node) join(hint cyclon.Peer) {
	if n.membership.Join(hint) {
		n.logger.Info("joined", zap.String("hint", hint.ID))
	}
	n.joined = true
}

// shuffle runs on each shuffle tick.
func (n *Node) shuffle() {
	target, req, ok := n.membership.Shuffle()
	if !ok {
		return
	}
	n.send(target, transport.NewShuffleRequest(n.self, req))
}

// round runs on each round tick.
func (n *Node) round() {
	events := n.disseminator.Round()
	if len(events) > 0 {
		peers := n.membership.SelectPeers(n.conf.Broadcast.NumReceivers)
		msg := transport.NewBall(n.self, events)
		for _, peer := range peers {
			n.send(peer, msg)
		}
		n.metrics.Broadcast.BallsOutbound.Add(float64(len(peers)))
	}

	for _, e := range n.orderer.Order(events) {
		n.onDeliver(e)
	}
}

// generate runs on each generate tick.
func (n *Node) generate() {
	action := epto.Action(n.rnd.Intn(2)) + epto.ActionDo
	n.disseminator.Broadcast(action)
}

func (n *Node) send(to cyclon.Peer, msg *transport.Message) {
	if err := n.transport.Send(to, msg); err != nil {
		n.metrics.MessagesDropped.Inc()
		n.logger.Debug(
			"failed to send message",
			zap.String("to", to.ID),
			zap.String("type", msg.Type.String()),
			zap.Error(err),
		)
	}
}

// armTimers schedules any timers that are enabled but not scheduled.
func (n *Node) armTimers() {
	if (n.joined || n.started) && n.shuffleTimer == nil {
		n.shuffleTimer = time.NewTimer(n.conf.Membership.ShufflePeriod)
	}
	if !n.started {
		return
	}
	if n.roundTimer == nil {
		n.roundTimer = time.NewTimer(n.conf.Broadcast.RoundInterval)
	}
	if n.generateTimer == nil && n.conf.Generate.Interval > 0 {
		delay := n.conf.Generate.Interval + time.Duration(
			n.rnd.Int63n(int64(n.conf.Broadcast.RoundInterval)),
		)
		n.generateTimer = time.NewTimer(delay)
	}
}

func (n *Node) stopTimers() {
	for _, t := range []*time.Timer{n.shuffleTimer, n.roundTimer, n.generateTimer} {
		if t != nil {
			t.Stop()
		}
	}
}

// exec queues f to run on the node goroutine.
func (n *Node) exec(f func()) {
	select {
	case n.requestCh <- f:
	case <-n.shutdownCh:
	}
}

// call runs f on the node goroutine and waits for it to complete.
func (n *Node) call(ctx context.Context, f func()) error {
	doneCh := make(chan struct{})
	select {
	case n.requestCh <- func() {
		f()
		close(doneCh)
	}:
	case <-n.shutdownCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-doneCh:
		return nil
	case <-n.shutdownCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timerCh(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
