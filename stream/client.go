package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/health"
	"github.com/a6b8/trackerAPI/metric"
	"github.com/a6b8/trackerAPI/pipeline"
	"github.com/a6b8/trackerAPI/pkg/cache"
	"github.com/a6b8/trackerAPI/pkg/retry"
	"github.com/a6b8/trackerAPI/rooms"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	sink      Sink
	transport Transport
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	handler   DiagnosticHandler
	rnd       func() float64
	pipeline  *pipeline.Registry
	catalog   *rooms.Catalog
	history   int
}

// WithSink routes events to sink instead of the internal Emitter.
func WithSink(sink Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithTransport replaces the gorilla websocket transport.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger sets the logger used by Diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records stream metrics into registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// WithDiagnosticHandler receives every diagnostic, unthrottled.
func WithDiagnosticHandler(h DiagnosticHandler) Option {
	return func(o *options) { o.handler = h }
}

// WithDiagnosticHistory sets how many recent diagnostics are kept for
// Diagnostics().Recent. Zero disables the history.
func WithDiagnosticHistory(n int) Option {
	return func(o *options) { o.history = n }
}

// WithRand sets the jitter source. rnd must return values in [0, 1).
func WithRand(rnd func() float64) Option {
	return func(o *options) { o.rnd = rnd }
}

// WithRegistry uses reg instead of a fresh default pipeline registry.
func WithRegistry(reg *pipeline.Registry) Option {
	return func(o *options) { o.pipeline = reg }
}

// WithCatalog replaces the default room catalog.
func WithCatalog(c *rooms.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// channel is one named connection slot.
type channel struct {
	name     string
	conn     Conn
	dialing  bool
	ready    bool
	openedAt time.Time

	errorCount      int
	immediateCloses int
	messages        int64
	lastActivity    time.Time
}

// Client is a multiplexed room subscription client. Create it with New.
type Client struct {
	id        string
	cfg       Config
	backoff   retry.Config
	rnd       func() float64
	transport Transport
	catalog   *rooms.Catalog
	registry  *pipeline.Registry
	sink      Sink
	emitter   *Emitter
	diag      *Diagnostics
	metrics   *streamMetrics
	dedup     cache.Cache[struct{}]

	mu             sync.Mutex
	epoch          uint64
	session        context.Context
	cancelSession  context.CancelFunc
	channels       map[string]*channel
	ledger         *ledger
	pending        []pendingRequest
	attempts       int
	exhausted      bool
	reconnectTimer *time.Timer
}

// New creates a client. It does not connect.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{history: DefaultDiagnosticHistory}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	c := &Client{
		id:        uuid.NewString(),
		cfg:       cfg,
		backoff:   cfg.Backoff(),
		rnd:       o.rnd,
		transport: o.transport,
		catalog:   o.catalog,
		registry:  o.pipeline,
		sink:      o.sink,
		metrics:   newStreamMetrics(o.registry),
		ledger:    newLedger(),
	}

	if c.rnd == nil {
		c.rnd = retry.Float64
	}
	if c.transport == nil {
		c.transport = NewWebsocketTransport()
	}
	if c.catalog == nil {
		c.catalog = rooms.Default()
	}
	if c.registry == nil {
		c.registry = pipeline.NewDefaultRegistry()
	}
	if c.sink == nil {
		c.emitter = NewEmitter()
		c.sink = c.emitter
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	c.diag = newDiagnostics(logger.With("client", c.id), o.handler, c.metrics, o.history)

	if cfg.DedupSize > 0 {
		dedup, err := cache.NewLRU[struct{}](cfg.DedupSize, cache.WithMetrics[struct{}](o.registry, "dedup"))
		if err != nil && o.registry != nil {
			// another client already exports dedup metrics into this registry
			logger.Warn("dedup cache metrics disabled", "client", c.id, "error", err)
			dedup, err = cache.NewLRU[struct{}](cfg.DedupSize)
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "stream", "New", "create dedup cache")
		}
		c.dedup = dedup
	}

	return c, nil
}

// ID identifies the client instance in logs.
func (c *Client) ID() string { return c.id }

// Registry returns the pipeline registry used to resolve filters,
// modifiers and strategies.
func (c *Client) Registry() *pipeline.Registry { return c.registry }

// Catalog returns the room catalog.
func (c *Client) Catalog() *rooms.Catalog { return c.catalog }

// Diagnostics returns the diagnostic stream of the client.
func (c *Client) Diagnostics() *Diagnostics { return c.diag }

// AddStrategy registers a named filter and modifier bundle.
func (c *Client) AddStrategy(name string, filters []pipeline.FilterRef, modifiers []pipeline.ModifierRef) error {
	return c.registry.AddStrategy(name, filters, modifiers)
}

// On registers an event handler on the internal emitter. It fails when the
// client was built WithSink.
func (c *Client) On(event string, fn Handler) (uint64, error) {
	if c.emitter == nil {
		return 0, errors.WrapInvalid(fmt.Errorf("client uses an external sink"), "stream", "On", "register handler")
	}
	return c.emitter.On(event, fn), nil
}

// Off removes a handler registered with On.
func (c *Client) Off(event string, id uint64) bool {
	if c.emitter == nil {
		return false
	}
	return c.emitter.Off(event, id)
}

// Subscriptions returns a snapshot of the ledger sorted by key.
func (c *Client) Subscriptions() []SubscriptionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.snapshot()
}

// Pending returns the number of queued room requests.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Ready reports whether channel has seen a ping since its last connect.
func (c *Client) Ready(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[name]
	return ok && ch.conn != nil && ch.ready
}

// Health reports one sub-status per configured channel.
func (c *Client) Health() health.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	subs := make([]health.Status, 0, len(c.cfg.SocketNames))
	for _, name := range c.cfg.SocketNames {
		ch := c.channels[name]

		var s health.Status
		switch {
		case ch == nil:
			s = health.NewUnhealthy(name, "disconnected")
		case ch.conn != nil && ch.ready:
			s = health.NewHealthy(name, "ready")
		case ch.conn != nil:
			s = health.NewDegraded(name, "waiting for first ping")
		case c.exhausted:
			s = health.NewUnhealthy(name, "reconnect attempts exhausted")
		default:
			s = health.NewDegraded(name, "reconnecting")
		}

		if ch != nil {
			m := &health.Metrics{
				ErrorCount:        ch.errorCount,
				ImmediateCloses:   ch.immediateCloses,
				ReconnectAttempts: c.attempts,
				MessagesProcessed: ch.messages,
				LastActivity:      ch.lastActivity,
			}
			if ch.conn != nil {
				m.Uptime = now.Sub(ch.openedAt)
			}
			s = s.WithMetrics(m)
		}
		subs = append(subs, s)
	}

	return health.Aggregate("stream", subs)
}

func (c *Client) syncGaugesLocked() {
	c.metrics.gauges(c.ledger.len(), len(c.pending))
}
