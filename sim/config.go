package sim

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/andydunstall/epto/node"
)

type Topology string

const (
	// TopologyStar joins every node to the first node.
	TopologyStar Topology = "star"
	// TopologyTwoStar splits the nodes between two centres, with a single
	// bridge node joined to both.
	TopologyTwoStar Topology = "two-star"
)

type Config struct {
	// Nodes is the number of nodes in the simulation.
	Nodes int `json:"nodes" yaml:"nodes"`

	Topology Topology `json:"topology" yaml:"topology"`

	// StartDelay is the duration between nodes joining and starting.
	StartDelay time.Duration `json:"start_delay" yaml:"start_delay"`

	// Duration is the duration to run after the nodes start.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// KillCenterAfter is the duration after the nodes start to crash the
	// first centre node. Zero disables killing the centre.
	KillCenterAfter time.Duration `json:"kill_center_after" yaml:"kill_center_after"`

	Node node.Config `json:"node" yaml:"node"`
}

func Default() *Config {
	return &Config{
		Nodes:      50,
		Topology:   TopologyStar,
		StartDelay: time.Second * 5,
		Duration:   time.Second * 30,
		Node:       *node.Default(),
	}
}

func (c *Config) Validate() error {
	switch c.Topology {
	case TopologyStar:
		if c.Nodes < 1 {
			return fmt.Errorf("nodes must be at least 1")
		}
	case TopologyTwoStar:
		if c.Nodes < 3 {
			return fmt.Errorf("nodes must be at least 3 with two-star topology")
		}
	case "":
		return fmt.Errorf("missing topology")
	default:
		return fmt.Errorf("unsupported topology: %s", c.Topology)
	}
	if c.StartDelay < 0 {
		return fmt.Errorf("start delay must not be negative")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("missing duration")
	}
	if c.KillCenterAfter < 0 {
		return fmt.Errorf("kill center after must not be negative")
	}
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(
		&c.Nodes,
		"sim.nodes",
		c.Nodes,
		`
The number of nodes to run.`,
	)
	fs.StringVar(
		(*string)(&c.Topology),
		"sim.topology",
		string(c.Topology),
		`
How nodes initially join the cluster, either 'star' or 'two-star'.

'star' joins every node to the first node.

'two-star' joins half the nodes to the first node and the other half to the
last node, with a single bridge node joining both.`,
	)
	fs.DurationVar(
		&c.StartDelay,
		"sim.start-delay",
		c.StartDelay,
		`
The duration to wait after nodes join before starting the nodes, giving the
membership views time to fill.`,
	)
	fs.DurationVar(
		&c.Duration,
		"sim.duration",
		c.Duration,
		`
The duration to run the nodes after they start.`,
	)
	fs.DurationVar(
		&c.KillCenterAfter,
		"sim.kill-center-after",
		c.KillCenterAfter,
		`
Crash the first centre node after the given duration since starting.

This checks the remaining nodes still deliver in total order once their views
no longer depend on the centre. Set to 0 to disable.`,
	)

	c.Node.RegisterFlags(fs, "")
}
