package node

import (
	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/epto"
	"github.com/andydunstall/epto/pkg/log"
)

// DeliverFunc is called with each delivered event, in delivery order.
//
// DeliverFunc is called from the nodes goroutine so must not block or call
// back to the node.
type DeliverFunc func(e epto.Event)

type options struct {
	onDeliver DeliverFunc
	watcher   cyclon.Watcher
	seed      *int64
	logger    log.Logger
}

type Option interface {
	apply(*options)
}

func defaultOptions() options {
	return options{
		onDeliver: func(_ epto.Event) {},
		watcher:   cyclon.NewNopWatcher(),
		logger:    log.NewNopLogger(),
	}
}

type deliverOption struct {
	OnDeliver DeliverFunc
}

func (o deliverOption) apply(opts *options) {
	if o.OnDeliver != nil {
		opts.onDeliver = o.OnDeliver
	}
}

// WithDeliverFunc sets the function called with each delivered event. A nil
// function is ignored.
func WithDeliverFunc(f DeliverFunc) Option {
	return deliverOption{OnDeliver: f}
}

type watcherOption struct {
	Watcher cyclon.Watcher
}

func (o watcherOption) apply(opts *options) {
	opts.watcher = o.Watcher
}

// WithWatcher sets a watcher to be notified when the view changes.
func WithWatcher(w cyclon.Watcher) Option {
	return watcherOption{Watcher: w}
}

type seedOption struct {
	Seed int64
}

func (o seedOption) apply(opts *options) {
	opts.seed = &o.Seed
}

// WithSeed overrides the random seed, rather than deriving the seed from the
// configured seed and node ID.
func WithSeed(seed int64) Option {
	return seedOption{Seed: seed}
}

type loggerOption struct {
	Logger log.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.logger = o.Logger
}

func WithLogger(l log.Logger) Option {
	return loggerOption{Logger: l}
}
