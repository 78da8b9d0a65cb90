package epto

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	// MaxTTL is the number of rounds an event is relayed for before it can
	// be delivered.
	MaxTTL uint32 `json:"max_ttl" yaml:"max_ttl"`

	// NumReceivers is the number of peers each ball is sent to per round
	// (the fanout, K).
	NumReceivers int `json:"num_receivers" yaml:"num_receivers"`

	// RoundInterval is the interval between rounds.
	RoundInterval time.Duration `json:"round_interval" yaml:"round_interval"`

	// PaperPolicy uses the admission and delivery boundaries from the EpTO
	// paper rather than the stricter defaults.
	PaperPolicy bool `json:"paper_policy" yaml:"paper_policy"`
}

func Default() *Config {
	return &Config{
		MaxTTL:        15,
		NumReceivers:  17,
		RoundInterval: time.Millisecond * 500,
	}
}

func (c *Config) Validate() error {
	if c.MaxTTL == 0 {
		return fmt.Errorf("missing max ttl")
	}
	if c.NumReceivers <= 0 {
		return fmt.Errorf("num receivers must be positive")
	}
	if c.RoundInterval <= 0 {
		return fmt.Errorf("missing round interval")
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	prefix = prefix + "broadcast."

	fs.Uint32Var(
		&c.MaxTTL,
		prefix+"max-ttl",
		c.MaxTTL,
		`
The number of rounds an event is relayed for.

An event is delivered once it is older than max-ttl rounds, so increasing
max-ttl increases the probability every node receives an event before it is
delivered, at the cost of delivery latency.`,
	)
	fs.IntVar(
		&c.NumReceivers,
		prefix+"num-receivers",
		c.NumReceivers,
		`
The number of random peers each round's ball of events is sent to.`,
	)
	fs.DurationVar(
		&c.RoundInterval,
		prefix+"round-interval",
		c.RoundInterval,
		`
The interval between rounds.

Each round the node relays its ball to its peers and delivers any events
that are ready.`,
	)
	fs.BoolVar(
		&c.PaperPolicy,
		prefix+"paper-policy",
		c.PaperPolicy,
		`
Use the ordering boundaries from the EpTO paper.

By default an event is only accepted if its timestamp is greater than the
last delivered timestamp, and a ready event is held back if an undelivered
event has an equal timestamp. With '--broadcast.paper-policy' events with an
equal timestamp are accepted and delivered, which can deliver events out of
order in rare cases.`,
	)
}
