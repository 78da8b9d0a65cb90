package cyclon

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	// ViewCapacity is the maximum number of peers in the view.
	ViewCapacity int `json:"view_capacity" yaml:"view_capacity"`

	// ShuffleSampleSize is the number of entries exchanged in a shuffle.
	ShuffleSampleSize int `json:"shuffle_sample_size" yaml:"shuffle_sample_size"`

	// ShufflePeriod is the interval between shuffles. A shuffle that hasn't
	// been replied to within one period is considered timed out.
	ShufflePeriod time.Duration `json:"shuffle_period" yaml:"shuffle_period"`
}

func Default() *Config {
	return &Config{
		ViewCapacity:      100,
		ShuffleSampleSize: 30,
		ShufflePeriod:     time.Millisecond * 100,
	}
}

func (c *Config) Validate() error {
	if c.ViewCapacity <= 0 {
		return fmt.Errorf("view capacity must be positive")
	}
	if c.ShuffleSampleSize <= 0 {
		return fmt.Errorf("shuffle sample size must be positive")
	}
	if c.ShuffleSampleSize > c.ViewCapacity {
		return fmt.Errorf(
			"shuffle sample size exceeds view capacity: %d > %d",
			c.ShuffleSampleSize, c.ViewCapacity,
		)
	}
	if c.ShufflePeriod <= 0 {
		return fmt.Errorf("missing shuffle period")
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	prefix = prefix + "membership."

	fs.IntVar(
		&c.ViewCapacity,
		prefix+"view-capacity",
		c.ViewCapacity,
		`
The maximum number of peers in the nodes view.`,
	)
	fs.IntVar(
		&c.ShuffleSampleSize,
		prefix+"shuffle-sample-size",
		c.ShuffleSampleSize,
		`
The number of view entries exchanged with a peer in each shuffle.

Must not exceed '--membership.view-capacity'.`,
	)
	fs.DurationVar(
		&c.ShufflePeriod,
		prefix+"shuffle-period",
		c.ShufflePeriod,
		`
The interval between shuffles.

Each shuffle the node exchanges a sample of its view with its oldest peer. If
that peer doesn't respond before the next shuffle it is removed from the
view.`,
	)
}
