package kd

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLeafCapacity is the number of points a leaf holds before it splits.
const DefaultLeafCapacity = 10

// Option configures an Index.
type Option func(*options)

type options struct {
	leafCapacity int
	logger       *slog.Logger
	registerer   prometheus.Registerer
}

// WithLeafCapacity sets the leaf capacity. Values below one are rejected by New.
func WithLeafCapacity(n int) Option {
	return func(o *options) { o.leafCapacity = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers index metrics with the given registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}
