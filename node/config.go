package node

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/rng"
)

type GenerateConfig struct {
	// Interval is the base interval between generated events. Each interval
	// has a random delay of up to one round interval added. If zero, events
	// are not generated and the application broadcasts events with
	// Node.Broadcast.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

func (c *GenerateConfig) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}

func (c *GenerateConfig) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	prefix = prefix + "generate."

	fs.DurationVar(
		&c.Interval,
		prefix+"interval",
		c.Interval,
		`
The interval to generate and broadcast events with a random action.

A random delay of up to '--broadcast.round-interval' is added to each
interval. Set to 0 to disable generating events.`,
	)
}

type Config struct {
	Membership cyclon.Config `json:"membership" yaml:"membership"`

	Broadcast epto.Config `json:"broadcast" yaml:"broadcast"`

	Generate GenerateConfig `json:"generate" yaml:"generate"`

	Rand rng.Config `json:"rand" yaml:"rand"`
}

func Default() *Config {
	return &Config{
		Membership: *cyclon.Default(),
		Broadcast:  *epto.Default(),
		Generate: GenerateConfig{
			Interval: time.Second * 10,
		},
		Rand: rng.Config{
			Mode: rng.ModeEvolving,
			Seed: 42,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Membership.Validate(); err != nil {
		return fmt.Errorf("membership: %w", err)
	}
	if err := c.Broadcast.Validate(); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	if err := c.Generate.Validate(); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := c.Rand.Validate(); err != nil {
		return fmt.Errorf("rand: %w", err)
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	c.Membership.RegisterFlags(fs, prefix)
	c.Broadcast.RegisterFlags(fs, prefix)
	c.Generate.RegisterFlags(fs, prefix)
	c.Rand.RegisterFlags(fs, prefix)
}
