package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/health"
)

// ConnectionStatus is the state of the NATS connection.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

var statusNames = [...]string{"disconnected", "connecting", "connected", "reconnecting", "circuit_open"}

func (s ConnectionStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
	ErrClosed       = stderrors.New("client closed")
)

// Client publishes bridge envelopes over one NATS connection. Repeated
// connect failures open a breaker that rejects attempts until it half-opens.
type Client struct {
	url     string
	cfg     settings
	logger  *slog.Logger
	breaker *breaker

	mu     sync.RWMutex
	conn   *nats.Conn
	state  ConnectionStatus
	closed bool
}

// NewClient creates a client for url. It does not connect.
func NewClient(url string, opts ...Option) (*Client, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	return &Client{
		url:     url,
		cfg:     cfg,
		logger:  cfg.logger.With("component", "natsclient"),
		breaker: newBreaker(cfg.breakerThreshold, cfg.maxBackoff),
	}, nil
}

func (c *Client) URL() string { return c.url }

// Status returns the connection state. An open breaker wins over the
// recorded state.
func (c *Client) Status() ConnectionStatus {
	if c.breaker.isOpen() {
		return StatusCircuitOpen
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s ConnectionStatus) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Failures returns the connect failures since the last success.
func (c *Client) Failures() int { return c.breaker.failures() }

// Backoff returns how long the breaker stays open the next time it opens.
func (c *Client) Backoff() time.Duration { return c.breaker.currentBackoff() }

func (c *Client) recordFailure() {
	opened, wait := c.breaker.fail()
	if !opened {
		return
	}
	c.logger.Warn("circuit breaker opened", "failures", c.breaker.failures(), "open_for", wait)
	time.AfterFunc(wait, func() {
		if c.breaker.halfOpen() {
			c.logger.Debug("circuit breaker half-open")
		}
	})
}

func (c *Client) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.cfg.maxReconnects),
		nats.ReconnectWait(c.cfg.reconnectWait),
		nats.PingInterval(c.cfg.pingInterval),
		nats.Timeout(c.cfg.timeout),
		nats.DrainTimeout(c.cfg.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) { c.transition(StatusReconnecting, err) }),
		nats.ReconnectHandler(func(*nats.Conn) { c.transition(StatusConnected, nil) }),
		nats.ClosedHandler(func(*nats.Conn) { c.transition(StatusDisconnected, nil) }),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			c.logger.Error("NATS error", "error", err)
		}),
	}
	if c.cfg.username != "" && c.cfg.password != "" {
		opts = append(opts, nats.UserInfo(c.cfg.username, c.cfg.password))
	}
	if c.cfg.token != "" {
		opts = append(opts, nats.Token(c.cfg.token))
	}
	if c.cfg.name != "" {
		opts = append(opts, nats.Name(c.cfg.name))
	}
	return opts
}

// transition applies a state change reported by nats.go.
func (c *Client) transition(s ConnectionStatus, err error) {
	c.mu.Lock()
	if c.closed && s != StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	switch s {
	case StatusReconnecting:
		c.logger.Warn("NATS disconnected", "error", err)
	case StatusConnected:
		c.breaker.reset()
		c.logger.Info("NATS reconnected")
	}
	if c.cfg.onStatus != nil {
		go c.cfg.onStatus(s)
	}
}

// Connect dials the server. It fails fast with ErrCircuitOpen while the
// breaker is open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()
	if c.breaker.isOpen() {
		return ErrCircuitOpen
	}

	c.setState(StatusConnecting)
	c.logger.Info("connecting to NATS", "url", c.url)

	done := make(chan *nats.Conn, 1)
	var dialErr error
	opts := c.natsOptions()
	go func() {
		conn, err := nats.Connect(c.url, opts...)
		dialErr = err
		done <- conn
	}()

	var conn *nats.Conn
	select {
	case conn = <-done:
		if dialErr != nil {
			return c.connectFailed(errors.WrapTransient(dialErr, "Client", "Connect", "establish connection"))
		}
	case <-ctx.Done():
		go func() {
			if late := <-done; late != nil {
				late.Close()
			}
		}()
		return c.connectFailed(errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled"))
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StatusConnected
	c.mu.Unlock()
	c.breaker.reset()
	c.logger.Info("connected to NATS", "url", c.url)
	return nil
}

func (c *Client) connectFailed(err error) error {
	c.recordFailure()
	if c.breaker.isOpen() {
		return ErrCircuitOpen
	}
	c.setState(StatusDisconnected)
	return err
}

// Close drains and closes the connection and forgets the credentials. The
// drain is bounded by the drain timeout or the context deadline.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.cfg.username, c.cfg.password, c.cfg.token = "", "", ""
	c.state = StatusDisconnected
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	limit := c.cfg.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < limit {
			limit = remaining
		}
	}
	drained := make(chan error, 1)
	go func() { drained <- conn.Drain() }()

	var err error
	select {
	case derr := <-drained:
		if derr != nil {
			err = errors.Wrap(derr, "Client", "Close", "drain connection")
		}
	case <-time.After(limit):
		err = errors.WrapTransient(fmt.Errorf("drain timeout after %v", limit), "Client", "Close", "drain")
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "Client", "Close", "drain")
	}
	if err != nil {
		c.logger.Error("drain failed, force closing", "error", err)
	}
	conn.Close()
	return err
}

func (c *Client) current() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// RTT measures the round trip to the server.
func (c *Client) RTT() (time.Duration, error) {
	conn := c.current()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

// Publish sends data on subject. nats.go buffers it while reconnecting.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn := c.current()
	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// Health maps the connection state to a health status.
func (c *Client) Health() health.Status {
	switch status := c.Status(); status {
	case StatusConnected:
		return health.NewHealthy("nats", "connected")
	case StatusConnecting, StatusReconnecting:
		return health.NewDegraded("nats", status.String())
	default:
		msg := status.String()
		if n := c.Failures(); n > 0 {
			msg = fmt.Sprintf("%s after %d failures", msg, n)
		}
		return health.NewUnhealthy("nats", msg)
	}
}
