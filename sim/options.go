package sim

import (
	"github.com/andydunstall/epto/pkg/checker"
	"github.com/andydunstall/epto/pkg/log"
)

type options struct {
	deliveryLog *checker.Log
	logger      log.Logger
}

type Option interface {
	apply(*options)
}

func defaultOptions() options {
	return options{
		logger: log.NewNopLogger(),
	}
}

type deliveryLogOption struct {
	Log *checker.Log
}

func (o deliveryLogOption) apply(opts *options) {
	opts.deliveryLog = o.Log
}

// WithDeliveryLog writes every delivered event to the given log.
func WithDeliveryLog(l *checker.Log) Option {
	return deliveryLogOption{Log: l}
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
