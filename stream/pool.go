package stream

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a6b8/trackerAPI/errors"
)

// Connect opens a connection for every channel that has none. It is a no-op
// when all channels are connected or dialing. An invalid URL is returned as
// a validation error; dial failures are reported as diagnostics and retried
// through the reconnect schedule.
func (c *Client) Connect(ctx context.Context) error {
	if err := ValidateURL(c.cfg.URL); err != nil {
		return err
	}

	c.mu.Lock()
	if c.channels == nil {
		c.channels = make(map[string]*channel, len(c.cfg.SocketNames))
		for _, name := range c.cfg.SocketNames {
			c.channels[name] = &channel{name: name}
		}
		c.session, c.cancelSession = context.WithCancel(context.Background())
	}
	c.attempts = 0
	c.exhausted = false
	names := c.claimIdleLocked()
	epoch := c.epoch
	c.mu.Unlock()

	if len(names) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			c.dial(gctx, name, epoch)
			return nil
		})
	}
	return g.Wait()
}

// Disconnect closes every channel and drops the ledger, the queue and the
// de-duplication state. Goroutines and timers of the old session become
// no-ops.
func (c *Client) Disconnect() error {
	var errs []error

	c.mu.Lock()
	c.epoch++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.cancelSession != nil {
		c.cancelSession()
		c.cancelSession = nil
		c.session = nil
	}
	for _, ch := range c.channels {
		if ch.conn != nil {
			if err := ch.conn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.metrics.ready(ch.name, false)
	}
	c.channels = nil
	c.ledger.clear()
	c.pending = nil
	c.attempts = 0
	c.exhausted = false
	c.syncGaugesLocked()
	c.mu.Unlock()

	if c.dedup != nil {
		_ = c.dedup.Clear()
	}

	c.diag.Emit(Diagnostic{Level: LevelInfo, Kind: KindChannelClosed, Message: "disconnected"})

	if err := stderrors.Join(errs...); err != nil {
		return errors.WrapTransient(err, "stream", "Disconnect", "close connections")
	}
	return nil
}

// claimIdleLocked marks channels without a connection as dialing and returns
// their names in configuration order.
func (c *Client) claimIdleLocked() []string {
	var names []string
	for _, name := range c.cfg.SocketNames {
		ch := c.channels[name]
		if ch != nil && ch.conn == nil && !ch.dialing {
			ch.dialing = true
			names = append(names, name)
		}
	}
	return names
}

func (c *Client) current(epoch uint64) bool {
	return c.epoch == epoch && c.channels != nil
}

func (c *Client) dial(ctx context.Context, name string, epoch uint64) {
	conn, err := c.transport.Dial(WithChannel(ctx, name), c.cfg.URL)

	var n notes
	c.mu.Lock()
	if !c.current(epoch) {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	ch := c.channels[name]
	ch.dialing = false
	if err != nil {
		ch.errorCount++
		n.add(LevelError, KindDialFailed, "websocket dial failed",
			"channel", name, "error", err.Error())
		c.scheduleReconnectLocked(&n)
		c.mu.Unlock()
		n.emit(c.diag)
		return
	}

	ch.conn = conn
	ch.ready = false
	ch.openedAt = time.Now()
	n.add(LevelInfo, KindChannelOpen, "channel connected, waiting for first ping", "channel", name)
	c.mu.Unlock()
	n.emit(c.diag)

	go c.readLoop(name, conn, epoch)
}

func (c *Client) readLoop(name string, conn Conn, epoch uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(name, conn, epoch, err)
			return
		}
		c.route(name, conn, epoch, data)
	}
}

// owns reports whether conn is still the live connection of channel name.
// The caller holds c.mu.
func (c *Client) owns(name string, conn Conn, epoch uint64) (*channel, bool) {
	if !c.current(epoch) {
		return nil, false
	}
	ch := c.channels[name]
	if ch == nil || ch.conn != conn {
		return nil, false
	}
	return ch, true
}

func (c *Client) handleClose(name string, conn Conn, epoch uint64, cause error) {
	var n notes
	c.mu.Lock()
	ch, ok := c.owns(name, conn, epoch)
	if !ok {
		c.mu.Unlock()
		return
	}

	lifetime := time.Since(ch.openedAt)
	ch.conn = nil
	ch.ready = false
	c.metrics.ready(name, false)
	_ = conn.Close()

	if lifetime < c.cfg.ImmediateCloseThreshold {
		ch.immediateCloses++
		c.metrics.immediateClose(name)
		n.add(LevelError, KindImmediateClose,
			"channel closed immediately after opening, check url, api key and network",
			"channel", name, "lifetime", lifetime.String(), "error", cause.Error())
	} else {
		n.add(LevelWarn, KindChannelClosed, "channel closed unexpectedly",
			"channel", name, "lifetime", lifetime.String(), "error", cause.Error())
	}

	c.scheduleReconnectLocked(&n)
	c.mu.Unlock()
	n.emit(c.diag)
}

// scheduleReconnectLocked arms the reconnect timer unless one is pending or
// the attempt budget is spent. The caller holds c.mu.
func (c *Client) scheduleReconnectLocked(n *notes) {
	if c.reconnectTimer != nil || c.exhausted {
		return
	}
	if c.backoff.Exhausted(c.attempts) {
		c.exhausted = true
		n.add(LevelError, KindReconnectExhausted, "maximum reconnect attempts reached, giving up",
			"attempts", c.attempts, "error", errors.ErrReconnectExhausted.Error())
		return
	}

	delay := c.backoff.DelayWith(c.attempts, c.rnd)
	epoch := c.epoch
	c.reconnectTimer = time.AfterFunc(delay, func() { c.reconnect(epoch) })
	n.add(LevelInfo, KindReconnect, "reconnect scheduled",
		"attempt", c.attempts, "delay", delay.String())
}

func (c *Client) reconnect(epoch uint64) {
	c.mu.Lock()
	if !c.current(epoch) {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	names := c.claimIdleLocked()
	if len(names) == 0 {
		c.mu.Unlock()
		return
	}
	c.attempts++
	c.metrics.reconnectAttempt()
	ctx := c.session
	c.mu.Unlock()

	for _, name := range names {
		c.dial(ctx, name, epoch)
	}
}
