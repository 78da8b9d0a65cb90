package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/andydunstall/epto/node"
	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/transport"
)

type AdminConfig struct {
	// BindAddr is the address to bind to listen for incoming HTTP connections.
	BindAddr string `json:"bind_addr" yaml:"bind_addr" validate:"required,hostname_port"`
}

type ClusterConfig struct {
	// NodeID is a unique identifier for this node in the cluster.
	NodeID string `json:"node_id" yaml:"node_id"`

	// NodeIDPrefix is a node ID prefix, where the rest of the node ID is
	// generated to ensure uniqueness.
	NodeIDPrefix string `json:"node_id_prefix" yaml:"node_id_prefix"`

	// Join is the transport address of a member of the cluster to join. If
	// empty the node waits for other nodes to join it.
	Join string `json:"join" yaml:"join" validate:"omitempty,hostname_port"`

	// JoinTimeout is the maximum duration to retry resolving the join
	// address.
	JoinTimeout time.Duration `json:"join_timeout" yaml:"join_timeout" validate:"gt=0"`

	// StartDelay is the duration to wait after joining before relaying and
	// delivering events, giving the membership view time to fill.
	StartDelay time.Duration `json:"start_delay" yaml:"start_delay" validate:"gte=0"`
}

type DeliveryLogConfig struct {
	// Path is the file to append delivered events to. If empty delivered
	// events are not logged.
	Path string `json:"path" yaml:"path"`
}

type Config struct {
	Node        node.Config       `json:"node" yaml:"node"`
	Transport   transport.Config  `json:"transport" yaml:"transport"`
	Admin       AdminConfig       `json:"admin" yaml:"admin"`
	Cluster     ClusterConfig     `json:"cluster" yaml:"cluster"`
	DeliveryLog DeliveryLogConfig `json:"delivery_log" yaml:"delivery_log"`
	Log         log.Config        `json:"log" yaml:"log"`

	// GracePeriod is the duration to gracefully shutdown the node.
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period"`
}

func Default() *Config {
	return &Config{
		Node:      *node.Default(),
		Transport: *transport.Default(),
		Admin: AdminConfig{
			BindAddr: ":8002",
		},
		Cluster: ClusterConfig{
			JoinTimeout: time.Minute,
			StartDelay:  time.Second * 5,
		},
		Log:         *log.Default(),
		GracePeriod: time.Second * 30,
	}
}

func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}

	validate := validator.New()
	if err := validate.Struct(&c.Admin); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if err := validate.Struct(&c.Cluster); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if c.Cluster.NodeID != "" && c.Cluster.NodeIDPrefix != "" {
		return fmt.Errorf("cluster: cannot specify both node ID and node ID prefix")
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.GracePeriod == 0 {
		return fmt.Errorf("missing grace period")
	}

	return nil
}

// GenerateNodeID sets the node ID if not configured, using the configured
// prefix.
func (c *Config) GenerateNodeID() {
	if c.Cluster.NodeID != "" {
		return
	}
	c.Cluster.NodeID = c.Cluster.NodeIDPrefix + uuid.NewString()
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	c.Node.RegisterFlags(fs, "")
	c.Transport.RegisterFlags(fs, "")

	fs.StringVar(
		&c.Admin.BindAddr,
		"admin.bind-addr",
		c.Admin.BindAddr,
		`
The host/port to listen for incoming admin connections.

If the host is unspecified it defaults to all listeners, such as
'--admin.bind-addr :8002' will listen on '0.0.0.0:8002'`,
	)

	fs.StringVar(
		&c.Cluster.NodeID,
		"cluster.node-id",
		c.Cluster.NodeID,
		`
A unique identifier for the node in the cluster.

By default a random ID will be generated for the node.`,
	)
	fs.StringVar(
		&c.Cluster.NodeIDPrefix,
		"cluster.node-id-prefix",
		c.Cluster.NodeIDPrefix,
		`
A prefix for the node ID.

A unique random identifier is generated for the node and appended to the
given prefix.`,
	)
	fs.StringVar(
		&c.Cluster.Join,
		"cluster.join",
		c.Cluster.Join,
		`
The transport address of a member of the cluster to join, such as
'10.26.104.14:8003'.

The node resolves the identity of the member and adds it to its view. The
rest of the cluster is then discovered by shuffling views. If unset the node
starts a new cluster and waits for other nodes to join.`,
	)
	fs.DurationVar(
		&c.Cluster.JoinTimeout,
		"cluster.join-timeout",
		c.Cluster.JoinTimeout,
		`
The maximum duration to retry connecting to the member to join.`,
	)
	fs.DurationVar(
		&c.Cluster.StartDelay,
		"cluster.start-delay",
		c.Cluster.StartDelay,
		`
The duration to wait after joining before relaying, delivering and generating
events.

Starting immediately means events are only relayed to the few peers known
so far.`,
	)

	fs.StringVar(
		&c.DeliveryLog.Path,
		"delivery-log.path",
		c.DeliveryLog.Path,
		`
A file to append delivered events to, with one JSON object per line.

Logs from multiple nodes can be checked for total order using 'epto check'.`,
	)

	c.Log.RegisterFlags(fs)

	fs.DurationVar(
		&c.GracePeriod,
		"grace-period",
		c.GracePeriod,
		`
Maximum duration after a shutdown signal is received (SIGTERM or
SIGINT) to gracefully shutdown the node before terminating.`,
	)
}
