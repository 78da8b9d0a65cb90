package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/log"
)

const (
	helloTimeout = time.Second * 10
)

// Stream sends messages to other nodes over TCP.
//
// Stream keeps one outbound connection per peer address, opened lazily when
// the first message is sent. Each message is written as a msgpack encoded
// header followed by the message body.
type Stream struct {
	self cyclon.Peer

	ln net.Listener

	dialer *net.Dialer

	queueSize int

	outbound map[string]*outboundConn

	// mu protects the above fields.
	mu sync.Mutex

	wg sync.WaitGroup

	metrics *Metrics

	logger log.Logger

	closed     *atomic.Bool
	shutdownCh chan struct{}
}

func NewStream(
	self cyclon.Peer,
	ln net.Listener,
	conf *Config,
	logger log.Logger,
) *Stream {
	return &Stream{
		self: self,
		ln:   ln,
		dialer: &net.Dialer{
			Timeout: conf.DialTimeout,
		},
		queueSize:  conf.QueueSize,
		outbound:   make(map[string]*outboundConn),
		metrics:    NewMetrics(),
		logger:     logger.WithSubsystem("transport"),
		closed:     atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
	}
}

// Serve accepts connections from other nodes and passes received messages to
// the handler. Serve blocks until the transport is closed.
func (s *Stream) Serve(h Handler) error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.logger.Debug(
			"accepted conn",
			zap.String("addr", conn.RemoteAddr().String()),
		)

		s.metrics.ConnectionsInbound.Inc()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			if err := s.handleConn(conn, h); err != nil {
				s.logger.Warn(
					"failed to handle connection",
					zap.String("addr", conn.RemoteAddr().String()),
					zap.Error(err),
				)
			}
		}()
	}
}

// Send queues the message to send to the peer at to.Addr.
func (s *Stream) Send(to cyclon.Peer, msg *Message) error {
	if to.Addr == "" {
		s.metrics.MessagesDropped.With(
			prometheus.Labels{"reason": "unknown_peer"},
		).Inc()
		return ErrUnknownPeer
	}

	s.mu.Lock()
	// Checked with the mutex held so no connections are added once Close
	// has started.
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	conn, ok := s.outbound[to.Addr]
	if !ok {
		conn = newOutboundConn(to.Addr, s.queueSize, s)
		s.outbound[to.Addr] = conn

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			conn.Run()
		}()
	}
	s.mu.Unlock()

	select {
	case conn.queue <- msg:
		return nil
	default:
		s.metrics.MessagesDropped.With(
			prometheus.Labels{"reason": "queue_full"},
		).Inc()
		return ErrQueueFull
	}
}

// Resolve returns the identity of the node at the given address.
func (s *Stream) Resolve(ctx context.Context, addr string) (cyclon.Peer, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return cyclon.Peer{}, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.metrics.ConnectionsOutbound.Inc()

	deadline := time.Now().Add(helloTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	w := bufio.NewWriter(conn)
	if err := newEncoder(w).Encode(&Message{
		Type: messageTypeHello,
		From: s.self,
	}); err != nil {
		return cyclon.Peer{}, fmt.Errorf("encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return cyclon.Peer{}, fmt.Errorf("flush: %w", err)
	}

	msg, err := newDecoder(bufio.NewReader(conn)).Decode()
	if err != nil {
		return cyclon.Peer{}, fmt.Errorf("decode: %w", err)
	}
	if msg.Type != messageTypeHello {
		return cyclon.Peer{}, fmt.Errorf("unexpected message type: %s", msg.Type)
	}
	return msg.From, nil
}

func (s *Stream) Metrics() *Metrics {
	return s.metrics
}

// Close closes the listener and all outbound connections. Queued messages
// are discarded.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		// Already closed.
		return nil
	}

	close(s.shutdownCh)

	err := s.ln.Close()

	s.mu.Lock()
	for _, conn := range s.outbound {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

func (s *Stream) handleConn(conn net.Conn, h Handler) error {
	defer conn.Close()

	// Close the connection on shutdown to unblock reads.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.shutdownCh:
			conn.Close()
		case <-connDone:
		}
	}()

	trackedReader := newTrackedReader(conn)
	decoder := newDecoder(bufio.NewReader(trackedReader))
	for {
		msg, err := decoder.Decode()
		s.metrics.BytesInbound.Add(float64(trackedReader.Reset()))
		if err != nil {
			if errors.Is(err, io.EOF) || s.closed.Load() {
				return nil
			}
			return fmt.Errorf("decode: %w", err)
		}

		s.metrics.MessagesInbound.With(
			prometheus.Labels{"type": msg.Type.String()},
		).Inc()

		if msg.Type == messageTypeHello {
			return s.hello(conn)
		}

		h(msg)
	}
}

// hello replies to a hello message with the local node identity.
func (s *Stream) hello(conn net.Conn) error {
	_ = conn.SetDeadline(time.Now().Add(helloTimeout))

	trackedWriter := newTrackedWriter(conn)
	defer func() {
		s.metrics.BytesOutbound.Add(float64(trackedWriter.Reset()))
	}()

	w := bufio.NewWriter(trackedWriter)
	if err := newEncoder(w).Encode(&Message{
		Type: messageTypeHello,
		From: s.self,
	}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// outboundConn writes queued messages to a peer, reconnecting if the
// connection fails.
type outboundConn struct {
	addr string

	queue chan *Message

	stream *Stream

	closeOnce  sync.Once
	shutdownCh chan struct{}
}

func newOutboundConn(addr string, queueSize int, stream *Stream) *outboundConn {
	return &outboundConn{
		addr:       addr,
		queue:      make(chan *Message, queueSize),
		stream:     stream,
		shutdownCh: make(chan struct{}),
	}
}

func (c *outboundConn) Run() {
	var conn net.Conn
	var w *bufio.Writer
	var enc *encoder
	var trackedWriter *trackedWriter

	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		var msg *Message
		select {
		case msg = <-c.queue:
		case <-c.shutdownCh:
			return
		}

		if conn == nil {
			var err error
			conn, err = c.stream.dialer.Dial("tcp", c.addr)
			if err != nil {
				c.stream.logger.Debug(
					"failed to connect to peer",
					zap.String("addr", c.addr),
					zap.Error(err),
				)
				c.stream.metrics.MessagesDropped.With(
					prometheus.Labels{"reason": "unreachable"},
				).Inc()
				conn = nil
				continue
			}
			c.stream.metrics.ConnectionsOutbound.Inc()

			trackedWriter = newTrackedWriter(conn)
			w = bufio.NewWriter(trackedWriter)
			enc = newEncoder(w)
		}

		err := enc.Encode(msg)
		// Flush once the queue is empty to batch writes.
		if err == nil && len(c.queue) == 0 {
			err = w.Flush()
		}
		c.stream.metrics.BytesOutbound.Add(float64(trackedWriter.Reset()))
		if err != nil {
			c.stream.logger.Warn(
				"failed to write to peer",
				zap.String("addr", c.addr),
				zap.Error(err),
			)
			c.stream.metrics.MessagesDropped.With(
				prometheus.Labels{"reason": "write_failed"},
			).Inc()

			conn.Close()
			conn = nil
			continue
		}

		c.stream.metrics.MessagesOutbound.With(
			prometheus.Labels{"type": msg.Type.String()},
		).Inc()
	}
}

func (c *outboundConn) Close() {
	c.closeOnce.Do(func() {
		close(c.shutdownCh)
	})
}

var _ Transport = &Stream{}
