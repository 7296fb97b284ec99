package sink

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/metric"
	"github.com/a6b8/trackerAPI/pkg/worker"
)

// Publish results recorded in trackerapi_bridge_published_total.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultDropped     = "dropped"
	ResultEncodeError = "encode_error"
)

// Publisher delivers encoded envelopes to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, data []byte) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, data []byte) error {
	return f(ctx, topic, data)
}

type message struct {
	topic string
	data  []byte
}

// Bridge is a stream sink that encodes every event and publishes it
// asynchronously. Emit never blocks on the broker: when the publish queue is
// full the event is dropped and counted.
type Bridge struct {
	name    string
	pub     Publisher
	topic   func(event string) string
	codec   Codec
	logger  *slog.Logger
	timeout time.Duration

	workers   int
	queueSize int
	registry  *metric.MetricsRegistry
	published *prometheus.CounterVec

	pool *worker.Pool[message]
	now  func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCodec selects the wire encoding. The default is JSON.
func WithCodec(codec Codec) Option {
	return func(b *Bridge) {
		if codec != nil {
			b.codec = codec
		}
	}
}

// WithLogger sets the logger used for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records publish results and queue metrics in registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bridge) {
		b.registry = registry
	}
}

// WithWorkers sets the number of publishing goroutines and the queue size.
func WithWorkers(workers, queueSize int) Option {
	return func(b *Bridge) {
		b.workers = workers
		b.queueSize = queueSize
	}
}

// WithPublishTimeout bounds a single publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBridge creates a bridge that publishes event e on topic(e).
func NewBridge(name string, pub Publisher, topic func(event string) string, opts ...Option) (*Bridge, error) {
	if pub == nil {
		return nil, errors.WrapInvalid(stderrors.New("publisher is nil"), "Bridge", "NewBridge", "check publisher")
	}
	if topic == nil {
		return nil, errors.WrapInvalid(stderrors.New("topic func is nil"), "Bridge", "NewBridge", "check topic")
	}

	b := &Bridge{
		name:      name,
		pub:       pub,
		topic:     topic,
		codec:     JSONCodec{},
		logger:    slog.Default(),
		timeout:   5 * time.Second,
		workers:   2,
		queueSize: 1024,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "bridge", "bridge", name)

	var poolOpts []worker.Option[message]
	if b.registry != nil {
		b.published = b.registry.CoreMetrics().BridgePublished
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[message](b.registry, name+"_bridge"))
	}

	pool, err := worker.NewPool(b.workers, b.queueSize, b.process, poolOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Bridge", "NewBridge", "create worker pool")
	}
	b.pool = pool
	return b, nil
}

// Name returns the bridge name.
func (b *Bridge) Name() string { return b.name }

// Start launches the publishing workers.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Bridge", "Start", "start worker pool")
	}
	b.logger.Info("bridge started", "codec", b.codec.Name())
	return nil
}

// Emit encodes the event and queues it for publication.
func (b *Bridge) Emit(event string, payload any) {
	data, err := b.codec.Marshal(Envelope{
		ID:        uuid.NewString(),
		Event:     event,
		Timestamp: b.now().UTC(),
		Data:      payload,
	})
	if err != nil {
		b.count(ResultEncodeError)
		b.logger.Error("cannot encode event", "event", event, "error", err)
		return
	}

	if err := b.pool.Submit(message{topic: b.topic(event), data: data}); err != nil {
		b.count(ResultDropped)
		b.logger.Warn("event dropped", "event", event, "error", err)
	}
}

func (b *Bridge) process(ctx context.Context, msg message) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.pub.Publish(ctx, msg.topic, msg.data); err != nil {
		b.count(ResultError)
		b.logger.Error("publish failed", "topic", msg.topic, "error", err)
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	b.count(ResultOK)
	return nil
}

// Close stops accepting events and waits up to timeout for queued events
// to be published.
func (b *Bridge) Close(timeout time.Duration) error {
	err := b.pool.Stop(timeout)
	stats := b.pool.Stats()
	b.logger.Info("bridge stopped",
		"processed", stats.Processed, "failed", stats.Failed, "dropped", stats.Dropped)
	if err != nil {
		return errors.WrapTransient(err, "Bridge", "Close", "drain queue")
	}
	return nil
}

// Stats returns the publish queue statistics.
func (b *Bridge) Stats() worker.PoolStats {
	return b.pool.Stats()
}

func (b *Bridge) count(result string) {
	if b.published != nil {
		b.published.WithLabelValues(b.name, result).Inc()
	}
}
