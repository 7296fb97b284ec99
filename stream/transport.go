package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/a6b8/trackerAPI/errors"
)

// Conn is one open transport connection. ReadMessage is only called from a
// single goroutine; WriteMessage and Close may be called concurrently with it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Transport opens connections.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type channelKey struct{}

// WithChannel returns a context carrying the channel name being dialed.
func WithChannel(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, channelKey{}, name)
}

// ChannelFromContext returns the channel name set by WithChannel.
func ChannelFromContext(ctx context.Context) string {
	name, _ := ctx.Value(channelKey{}).(string)
	return name
}

// WebsocketTransport dials with gorilla/websocket.
type WebsocketTransport struct {
	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
}

// NewWebsocketTransport returns a transport with a 45s handshake timeout and
// a 10s write timeout.
func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
		WriteTimeout: 10 * time.Second,
	}
}

// Dial opens a websocket connection.
func (t *WebsocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, t.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "WebsocketTransport", "Dial", "open websocket")
	}
	return &wsConn{conn: conn, writeTimeout: t.WriteTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  bool
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, errors.WrapTransient(err, "wsConn", "ReadMessage", "read frame")
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return errors.ErrNotConnected
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.WrapTransient(err, "wsConn", "WriteMessage", "write frame")
	}
	return nil
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return c.conn.Close()
}
