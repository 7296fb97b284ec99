package natsclient

import (
	"fmt"
	"log/slog"
	"time"
)

// settings collects everything the options may change.
type settings struct {
	logger *slog.Logger

	name          string
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	breakerThreshold int
	maxBackoff       time.Duration

	username, password, token string

	onStatus func(ConnectionStatus)
}

func defaultSettings() settings {
	return settings{
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     10 * time.Second,
		breakerThreshold: 5,
		maxBackoff:       time.Minute,
	}
}

// Option configures a Client.
type Option func(*settings) error

// WithLogger sets the logger. A nil logger keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithName sets the client name reported to the server.
func WithName(name string) Option {
	return func(s *settings) error {
		s.name = name
		return nil
	}
}

// WithMaxReconnects bounds the reconnects nats.go makes after a connection
// was established. -1 retries forever.
func WithMaxReconnects(n int) Option {
	return func(s *settings) error {
		s.maxReconnects = n
		return nil
	}
}

func WithReconnectWait(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return fmt.Errorf("reconnect wait cannot be negative: %v", d)
		}
		s.reconnectWait = d
		return nil
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(s *settings) error {
		s.pingInterval = d
		return nil
	}
}

// WithTimeout bounds a single dial.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive: %v", d)
		}
		s.timeout = d
		return nil
	}
}

// WithDrainTimeout bounds the drain in Close.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *settings) error {
		s.drainTimeout = d
		return nil
	}
}

// WithBreaker sets how many consecutive connect failures open the breaker
// and the longest it stays open. Out of range values keep the defaults.
func WithBreaker(threshold int, maxBackoff time.Duration) Option {
	return func(s *settings) error {
		if threshold >= 1 {
			s.breakerThreshold = threshold
		}
		if maxBackoff >= time.Second {
			s.maxBackoff = maxBackoff
		}
		return nil
	}
}

// WithCredentials authenticates with user and password. Both are
// forgotten on Close.
func WithCredentials(username, password string) Option {
	return func(s *settings) error {
		s.username, s.password = username, password
		return nil
	}
}

func WithToken(token string) Option {
	return func(s *settings) error {
		s.token = token
		return nil
	}
}

// WithStatusCallback is called on its own goroutine whenever nats.go reports
// a disconnect, a reconnect or a close.
func WithStatusCallback(fn func(ConnectionStatus)) Option {
	return func(s *settings) error {
		s.onStatus = fn
		return nil
	}
}
