// Package rng provides the random sources used by the protocols.
//
// Two modes are supported. ModeEvolving uses a single generator seeded once,
// so each call continues the sequence. ModeReseed creates a fresh generator
// from the same seed on every call, so every call returns the same sequence,
// such as selecting the same peers from the same view. ModeReseed is only
// useful to reproduce results of earlier experiments.
package rng

import (
	"fmt"
	"math/rand"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/pflag"
)

type Mode string

const (
	ModeEvolving Mode = "evolving"
	ModeReseed   Mode = "reseed"
)

// Source is a source of random values. A Source is not safe for concurrent
// use, it is owned by a single node.
type Source interface {
	// Intn returns a random int in [0, n).
	Intn(n int) int
	// Int63n returns a random int64 in [0, n).
	Int63n(n int64) int64
	// Perm returns a random permutation of [0, n).
	Perm(n int) []int
}

// New returns a source with the given mode and seed.
func New(mode Mode, seed int64) (Source, error) {
	switch mode {
	case ModeEvolving, "":
		return rand.New(rand.NewSource(seed)), nil
	case ModeReseed:
		return &reseedSource{seed: seed}, nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
}

// Derive returns a seed for the node with the given ID, so nodes sharing a
// configured seed don't all generate the same sequence.
func Derive(seed int64, nodeID string) int64 {
	return seed ^ int64(xxhash.Sum64String(nodeID))
}

type reseedSource struct {
	seed int64
}

func (s *reseedSource) Intn(n int) int {
	return s.rand().Intn(n)
}

func (s *reseedSource) Int63n(n int64) int64 {
	return s.rand().Int63n(n)
}

func (s *reseedSource) Perm(n int) []int {
	return s.rand().Perm(n)
}

func (s *reseedSource) rand() *rand.Rand {
	return rand.New(rand.NewSource(s.seed))
}

var _ Source = &reseedSource{}

type Config struct {
	// Mode is the randomness mode, either 'evolving' or 'reseed'.
	Mode Mode `json:"mode" yaml:"mode"`

	// Seed is the base seed.
	Seed int64 `json:"seed" yaml:"seed"`
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeEvolving, ModeReseed:
		return nil
	case "":
		return fmt.Errorf("missing mode")
	default:
		return fmt.Errorf("unsupported mode: %s", c.Mode)
	}
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet, prefix string) {
	prefix = prefix + "rand."

	fs.StringVar(
		(*string)(&c.Mode),
		prefix+"mode",
		string(c.Mode),
		`
How random values are generated, either 'evolving' or 'reseed'.

'evolving' seeds a single generator once so each random choice differs.

'reseed' creates a new generator from the seed for every random choice, so
the node makes the same choice every time (such as always selecting the same
peers from the same view). This reduces randomness so should only be used to
reproduce the results of earlier experiments.`,
	)
	fs.Int64Var(
		&c.Seed,
		prefix+"seed",
		c.Seed,
		`
The random seed.

Each node derives its own seed from this seed and its node ID.`,
	)
}

func (m Mode) String() string {
	return string(m)
}
