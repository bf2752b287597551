package nn

import (
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/dwconv/internal/parallel"
)

// Option configures layer construction.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	parallel parallel.Config
	src      rand.Source
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		parallel: parallel.DefaultConfig(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the layer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithParallel sets how Forward and Backward fan out work.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) {
		o.parallel = cfg
	}
}

// WithRandSource makes parameter initialization reproducible.
func WithRandSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}
