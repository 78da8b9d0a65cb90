package transport

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

type Config struct {
	// BindAddr is the address to bind to listen for connections from other
	// nodes.
	BindAddr string `json:"bind_addr" yaml:"bind_addr" validate:"required,hostname_port"`

	// AdvertiseAddr is the address to advertise to other nodes.
	AdvertiseAddr string `json:"advertise_addr" yaml:"advertise_addr" validate:"omitempty,hostname_port"`

	// DialTimeout is the timeout when connecting to another node.
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout" validate:"gt=0"`

	// QueueSize is the maximum number of queued messages to each peer.
	QueueSize int `json:"queue_size" yaml:"queue_size" validate:"gt=0"`
}

func Default() *Config {
	return &Config{
		BindAddr:    ":8003",
		DialTimeout: time.Second * 5,
		QueueSize:   1024,
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	prefix = prefix + "transport."

	fs.StringVar(
		&c.BindAddr,
		prefix+"bind-addr",
		c.BindAddr,
		`
The host/port to listen for messages from other nodes.

If the host is unspecified it defaults to all listeners, such as
a bind address ':8003' will listen on '0.0.0.0:8003'`,
	)
	fs.StringVar(
		&c.AdvertiseAddr,
		prefix+"advertise-addr",
		c.AdvertiseAddr,
		`
Address to advertise to other nodes. This is the address other nodes will
use to send messages to the node, and is included in the nodes view entry.

By default, if the bind address includes an IP to bind to that will be used.
If the bind address does not include an IP (such as ':8003') the nodes
private IP will be used, such as a bind address of ':8003' may have an
advertise address of '10.26.104.14:8003'.`,
	)
	fs.DurationVar(
		&c.DialTimeout,
		prefix+"dial-timeout",
		c.DialTimeout,
		`
Timeout when connecting to another node.`,
	)
	fs.IntVar(
		&c.QueueSize,
		prefix+"queue-size",
		c.QueueSize,
		`
The maximum number of messages queued to send to each peer.

If a peer is slow or unreachable, messages beyond this limit are dropped.`,
	)
}
