// Package server runs a networked node, which communicates with other nodes
// over TCP and exposes an admin server for metrics and status.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/epto/node"
	"github.com/andydunstall/epto/pkg/backoff"
	"github.com/andydunstall/epto/pkg/checker"
	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/transport"
	"github.com/andydunstall/epto/server/admin"
	"github.com/andydunstall/epto/server/config"
)

const (
	minJoinBackoff = time.Millisecond * 100
	maxJoinBackoff = time.Second * 5
)

// Server runs a node with the TCP transport and admin server.
type Server struct {
	stream *transport.Stream

	node *node.Node

	adminLn     net.Listener
	adminServer *admin.Server

	deliveryLog     *checker.Log
	deliveryLogFile *os.File

	registry *prometheus.Registry

	conf *config.Config

	logger log.Logger
}

// NewServer creates a server with the given configuration. The configuration
// must have a node ID and transport advertise address.
func NewServer(conf *config.Config, logger log.Logger) (*Server, error) {
	if conf.Cluster.NodeID == "" {
		return nil, fmt.Errorf("missing node id")
	}

	s := &Server{
		registry: prometheus.NewRegistry(),
		conf:     conf,
		logger:   logger,
	}

	transportLn, err := net.Listen("tcp", conf.Transport.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("transport listen: %s: %w", conf.Transport.BindAddr, err)
	}

	advertiseAddr := conf.Transport.AdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr = transportLn.Addr().String()
	}
	self := cyclon.Peer{
		ID:   conf.Cluster.NodeID,
		Addr: advertiseAddr,
	}

	s.stream = transport.NewStream(self, transportLn, &conf.Transport, logger)
	s.stream.Metrics().Register(s.registry)

	if conf.DeliveryLog.Path != "" {
		f, err := os.OpenFile(
			conf.DeliveryLog.Path,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0o644,
		)
		if err != nil {
			s.stream.Close()
			return nil, fmt.Errorf("open delivery log: %w", err)
		}
		s.deliveryLogFile = f
		s.deliveryLog = checker.NewLog(f)
	}

	n, err := node.New(
		self,
		&conf.Node,
		s.stream,
		node.WithDeliverFunc(s.onDeliver),
		node.WithWatcher(newMembershipLogger(logger)),
		node.WithLogger(logger),
	)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("node: %w", err)
	}
	s.node = n
	s.node.Metrics().Register(s.registry)

	adminLn, err := net.Listen("tcp", conf.Admin.BindAddr)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("admin listen: %s: %w", conf.Admin.BindAddr, err)
	}
	s.adminLn = adminLn
	s.adminServer = admin.NewServer(s.registry, logger)
	s.adminServer.AddStatus("/node", node.NewStatus(s.node))

	return s, nil
}

// Run runs the server until the context is cancelled, then gracefully shuts
// down.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(
		"starting node",
		zap.String("node-id", s.node.ID()),
		zap.String("addr", s.node.Peer().Addr),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.stream.Serve(s.node.HandleMessage); err != nil {
			return fmt.Errorf("transport serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.adminServer.Serve(s.adminLn); err != nil {
			return fmt.Errorf("admin server serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.joinAndStart(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()

		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.conf.GracePeriod,
		)
		defer cancel()

		if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to gracefully shutdown admin server", zap.Error(err))
		}
		s.close()
		return nil
	})

	return g.Wait()
}

func (s *Server) Node() *node.Node {
	return s.node
}

// AdminAddr returns the address the admin server is listening on.
func (s *Server) AdminAddr() string {
	return s.adminLn.Addr().String()
}

// joinAndStart joins the configured member, then starts the node after the
// configured delay.
func (s *Server) joinAndStart(ctx context.Context) error {
	if s.conf.Cluster.Join != "" {
		hint, err := s.resolveJoin(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("join: %s: %w", s.conf.Cluster.Join, err)
		}
		s.node.Join(hint)

		s.logger.Info(
			"joined cluster",
			zap.String("hint", hint.ID),
			zap.String("addr", hint.Addr),
		)
	}

	t := time.NewTimer(s.conf.Cluster.StartDelay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return nil
	}

	s.node.Start()
	return nil
}

// resolveJoin resolves the identity of the member to join, retrying with
// backoff until the join timeout.
func (s *Server) resolveJoin(ctx context.Context) (cyclon.Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.conf.Cluster.JoinTimeout)
	defer cancel()

	backoff := backoff.New(0, minJoinBackoff, maxJoinBackoff)
	for {
		peer, err := s.stream.Resolve(ctx, s.conf.Cluster.Join)
		if err == nil {
			return peer, nil
		}

		s.logger.Warn(
			"failed to resolve join address; retrying",
			zap.String("addr", s.conf.Cluster.Join),
			zap.Int("attempts", backoff.Attempts()),
			zap.Error(err),
		)

		if !backoff.Wait(ctx) {
			return cyclon.Peer{}, err
		}
	}
}

func (s *Server) onDeliver(e epto.Event) {
	s.logger.Debug(
		"delivered",
		zap.String("event", e.ID.String()),
		zap.String("action", e.Action.String()),
		zap.Uint64("timestamp", e.Timestamp),
	)

	if s.deliveryLog == nil {
		return
	}
	if err := s.deliveryLog.Write(s.conf.Cluster.NodeID, e); err != nil {
		s.logger.Error("failed to write delivery log", zap.Error(err))
	}
}

func (s *Server) close() {
	if s.node != nil {
		s.node.Close()
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("failed to close transport", zap.Error(err))
	}
	if s.deliveryLogFile != nil {
		if err := s.deliveryLogFile.Close(); err != nil {
			s.logger.Warn("failed to close delivery log", zap.Error(err))
		}
	}
}
