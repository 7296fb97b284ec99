package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a6b8/trackerAPI/errors"
)

// fakeConn is an in-memory Conn. push blocks until the frame has been fully
// routed by the client's read loop.
type fakeConn struct {
	channel string
	in      chan []byte
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	sent     []string
	writeErr error
}

func newFakeConn(channel string) *fakeConn {
	return &fakeConn{
		channel: channel,
		in:      make(chan []byte),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	for {
		select {
		case data := <-c.in:
			if data == nil {
				continue // barrier
			}
			return data, nil
		case <-c.closed:
			return nil, errors.ErrConnectionLost
		}
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return errors.ErrNotConnected
	default:
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push delivers raw to the read loop and waits until it was handled.
func (c *fakeConn) push(t *testing.T, raw string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for _, data := range [][]byte{[]byte(raw), nil} {
		select {
		case c.in <- data:
		case <-c.closed:
			return
		case <-timeout:
			t.Fatalf("push to %s timed out", c.channel)
		}
	}
}

func (c *fakeConn) pushJSON(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.push(t, string(data))
}

func (c *fakeConn) ping(t *testing.T) {
	c.push(t, `{"type":"ping"}`)
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() {
	_ = c.Close()
}

func (c *fakeConn) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

type fakeTransport struct {
	mu      sync.Mutex
	conns   map[string][]*fakeConn
	dialErr error
	dials   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(map[string][]*fakeConn)}
}

func (t *fakeTransport) Dial(ctx context.Context, _ string) (Conn, error) {
	name := ChannelFromContext(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	conn := newFakeConn(name)
	t.conns[name] = append(t.conns[name], conn)
	return conn, nil
}

func (t *fakeTransport) setDialErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) connCount(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns[name])
}

// conn returns the latest connection of channel name.
func (t *fakeTransport) conn(tb testing.TB, name string) *fakeConn {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	conns := t.conns[name]
	require.NotEmpty(tb, conns, "no connection for %s", name)
	return conns[len(conns)-1]
}

type event struct {
	name    string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Emit(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: name, payload: payload})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

type diagRecorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (d *diagRecorder) handle(diag Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.diags = append(d.diags, diag)
}

func (d *diagRecorder) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, diag := range d.diags {
		if diag.Kind == kind {
			n++
		}
	}
	return n
}

func (d *diagRecorder) last(kind string) (Diagnostic, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.diags) - 1; i >= 0; i-- {
		if d.diags[i].Kind == kind {
			return d.diags[i], true
		}
	}
	return Diagnostic{}, false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.URL = "wss://datastream.example.test/api-key"
	cfg.ReconnectDelay = 5 * time.Millisecond
	cfg.ReconnectDelayMax = 20 * time.Millisecond
	cfg.ImmediateCloseThreshold = 0
	return cfg
}

type harness struct {
	client    *Client
	transport *fakeTransport
	events    *recorder
	diags     *diagRecorder
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		transport: newFakeTransport(),
		events:    &recorder{},
		diags:     &diagRecorder{},
	}
	base := []Option{
		WithTransport(h.transport),
		WithSink(h.events),
		WithLogger(discardLogger()),
		WithDiagnosticHandler(h.diags.handle),
		WithRand(func() float64 { return 0 }),
	}
	client, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	h.client = client
	t.Cleanup(func() { _ = client.Disconnect() })
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.client.Connect(context.Background()))
}

func (h *harness) main(t *testing.T) *fakeConn {
	return h.transport.conn(t, "main")
}

func (h *harness) tx(t *testing.T) *fakeConn {
	return h.transport.conn(t, "transaction")
}
