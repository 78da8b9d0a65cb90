// Package sim runs a cluster of nodes in a single process, connected by an
// in-memory network, then checks the nodes delivered events in total order.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/epto/node"
	"github.com/andydunstall/epto/pkg/checker"
	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/transport"
)

const (
	statusTimeout = time.Second * 5
)

type NodeReport struct {
	ID string `json:"id" yaml:"id"`

	// Killed is true if the node was crashed during the run.
	Killed bool `json:"killed" yaml:"killed"`

	// ViewSize is the size of the nodes view when the run completed. Zero
	// if the node was killed.
	ViewSize int `json:"view_size" yaml:"view_size"`

	Delivered int `json:"delivered" yaml:"delivered"`
}

type Report struct {
	RunID string `json:"run_id" yaml:"run_id"`

	Nodes []NodeReport `json:"nodes" yaml:"nodes"`

	// Dropped is the number of messages sent to crashed nodes.
	Dropped uint64 `json:"dropped" yaml:"dropped"`

	Check *checker.Report `json:"check" yaml:"check"`
}

// Simulation runs a single simulation.
type Simulation struct {
	runID string

	conf *Config

	network *transport.Network

	nodes []*node.Node

	// killed contains the IDs of crashed nodes.
	killed map[string]bool

	deliveries map[string][]checker.Record

	// mu protects the above fields.
	mu sync.Mutex

	deliveryLog *checker.Log

	logger log.Logger
}

func New(conf *Config, opts ...Option) *Simulation {
	options := defaultOptions()
	for _, o := range opts {
		o.apply(&options)
	}

	runID := uuid.NewString()
	return &Simulation{
		runID:       runID,
		conf:        conf,
		network:     transport.NewNetwork(),
		killed:      make(map[string]bool),
		deliveries:  make(map[string][]checker.Record),
		deliveryLog: options.deliveryLog,
		logger: options.logger.WithSubsystem("sim").With(
			zap.String("run-id", runID),
		),
	}
}

// Run runs the simulation until the configured duration elapses or the
// context is cancelled, then returns the report.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	if err := s.conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	defer s.network.Close()

	if err := s.createNodes(); err != nil {
		s.closeNodes()
		return nil, err
	}

	s.logger.Info(
		"joining nodes",
		zap.Int("nodes", s.conf.Nodes),
		zap.String("topology", string(s.conf.Topology)),
	)
	for i, hints := range Joins(s.conf.Nodes, s.conf.Topology) {
		for _, hint := range hints {
			s.nodes[i].Join(s.nodes[hint].Peer())
		}
	}

	if sleep(ctx, s.conf.StartDelay) {
		s.logger.Info("starting nodes")
		for _, n := range s.nodes {
			n.Start()
		}

		s.run(ctx)
	}

	s.logger.Info("stopping nodes")

	report := &Report{
		RunID: s.runID,
		Nodes: s.nodeReports(),
	}
	s.closeNodes()

	report.Dropped = s.network.Dropped()

	s.mu.Lock()
	report.Check = checker.Check(s.deliveries)
	s.mu.Unlock()

	return report, nil
}

func (s *Simulation) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.conf.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	if s.conf.KillCenterAfter > 0 {
		g.Go(func() error {
			if sleep(ctx, s.conf.KillCenterAfter) {
				s.kill(s.nodes[0])
			}
			return nil
		})
	}
	// Neither goroutine returns an error.
	_ = g.Wait()
}

func (s *Simulation) createNodes() error {
	for i := 0; i != s.conf.Nodes; i++ {
		id := fmt.Sprintf("node-%d", i)
		n, err := node.New(
			cyclon.Peer{ID: id},
			&s.conf.Node,
			s.network.Transport(),
			node.WithSeed(s.conf.Node.Rand.Seed+int64(i)),
			node.WithDeliverFunc(func(e epto.Event) {
				s.onDeliver(id, e)
			}),
			node.WithLogger(s.logger),
		)
		if err != nil {
			return fmt.Errorf("node: %s: %w", id, err)
		}
		s.network.Attach(id, n.HandleMessage)
		s.nodes = append(s.nodes, n)
	}
	return nil
}

// kill crashes the node. The node no longer receives messages and stops
// sending messages.
func (s *Simulation) kill(n *node.Node) {
	s.logger.Info("killing node", zap.String("node-id", n.ID()))

	s.network.Detach(n.ID())
	n.Close()

	s.mu.Lock()
	s.killed[n.ID()] = true
	s.mu.Unlock()
}

func (s *Simulation) nodeReports() []NodeReport {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	var reports []NodeReport
	for _, n := range s.nodes {
		s.mu.Lock()
		killed := s.killed[n.ID()]
		s.mu.Unlock()

		report := NodeReport{
			ID:     n.ID(),
			Killed: killed,
		}
		if !killed {
			// Must not hold mu as the node may be delivering.
			view, err := n.View(ctx)
			if err != nil {
				s.logger.Warn(
					"failed to get view",
					zap.String("node-id", n.ID()),
					zap.Error(err),
				)
			} else {
				report.ViewSize = len(view.Entries)
			}
		}
		reports = append(reports, report)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range reports {
		reports[i].Delivered = len(s.deliveries[reports[i].ID])
	}
	return reports
}

func (s *Simulation) closeNodes() {
	var g errgroup.Group
	for _, n := range s.nodes {
		g.Go(func() error {
			n.Close()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Simulation) onDeliver(id string, e epto.Event) {
	s.mu.Lock()
	s.deliveries[id] = append(s.deliveries[id], checker.NewRecord(id, e))
	s.mu.Unlock()

	if s.deliveryLog != nil {
		if err := s.deliveryLog.Write(id, e); err != nil {
			s.logger.Error("failed to write delivery log", zap.Error(err))
		}
	}
}

// Joins returns the indexes of the nodes each node joins for the given
// topology.
func Joins(n int, topology Topology) map[int][]int {
	joins := make(map[int][]int)
	switch topology {
	case TopologyStar:
		for i := 1; i < n; i++ {
			joins[i] = []int{0}
		}
	case TopologyTwoStar:
		center1 := 0
		center2 := n - 1
		bridge := n / 2
		for i := 1; i < bridge; i++ {
			joins[i] = []int{center1}
		}
		for i := bridge + 1; i < center2; i++ {
			joins[i] = []int{center2}
		}
		joins[bridge] = []int{center2, center1}
	}
	return joins
}

// sleep waits for the duration, returning false if the context is cancelled
// first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
