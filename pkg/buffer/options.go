package buffer

import (
	"github.com/a6b8/trackerAPI/metric"
)

// Option configures a Ring.
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	dropCallback  DropCallback[T]
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithMetrics exports the ring size and evictions, labelled with prefix.
// A nil registry or an empty prefix is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *bufferOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithDropCallback sets a callback for evicted items. It runs without the
// ring's lock held.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.dropCallback = callback
	}
}

func applyOptions[T any](options ...Option[T]) *bufferOptions[T] {
	opts := &bufferOptions[T]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
