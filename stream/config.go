package stream

import (
	"fmt"
	"strings"
	"time"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/pkg/retry"
	"github.com/a6b8/trackerAPI/rooms"
)

// Config holds the connection settings of a Client.
type Config struct {
	URL                     string
	SocketNames             []string
	ReconnectDelay          time.Duration
	ReconnectDelayMax       time.Duration
	RandomizationFactor     float64
	MaxAttempts             int // 0 = unlimited
	ImmediateCloseThreshold time.Duration
	DedupSize               int // 0 disables transaction de-duplication
}

// DefaultConfig returns the defaults of the data stream client.
func DefaultConfig() Config {
	return Config{
		SocketNames:             []string{rooms.ChannelMain, rooms.ChannelTransaction},
		ReconnectDelay:          2500 * time.Millisecond,
		ReconnectDelayMax:       4500 * time.Millisecond,
		RandomizationFactor:     0.5,
		ImmediateCloseThreshold: 800 * time.Millisecond,
		DedupSize:               10000,
	}
}

// Backoff returns the reconnect schedule described by c.
func (c Config) Backoff() retry.Config {
	return retry.Reconnect(c.ReconnectDelay, c.ReconnectDelayMax, c.RandomizationFactor, c.MaxAttempts)
}

// ValidateURL checks the websocket URL.
func ValidateURL(url string) error {
	var msg string
	switch {
	case url == "":
		msg = "wsUrl is undefined"
	case !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://"):
		msg = "wsUrl is not a valid websocket url"
	default:
		return nil
	}
	return errors.NewValidation(errors.ErrInvalidURL, "stream", "Connect", msg)
}

// Validate checks everything except the URL, which is checked on Connect.
func (c Config) Validate() error {
	var messages []string

	if len(c.SocketNames) == 0 {
		messages = append(messages, "socketNames must not be empty")
	}
	seen := make(map[string]bool, len(c.SocketNames))
	for _, name := range c.SocketNames {
		if name == "" {
			messages = append(messages, "socketNames must not contain empty names")
			continue
		}
		if seen[name] {
			messages = append(messages, fmt.Sprintf("socketNames contains '%s' twice", name))
		}
		seen[name] = true
	}

	if c.ReconnectDelay <= 0 {
		messages = append(messages, "reconnectDelay must be positive")
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		messages = append(messages, "reconnectDelayMax must be >= reconnectDelay")
	}
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		messages = append(messages, "randomizationFactor must be within [0, 1]")
	}
	if c.MaxAttempts < 0 {
		messages = append(messages, "maxAttempts cannot be negative")
	}
	if c.ImmediateCloseThreshold < 0 {
		messages = append(messages, "immediateCloseThreshold cannot be negative")
	}
	if c.DedupSize < 0 {
		messages = append(messages, "dedupSize cannot be negative")
	}

	return errors.NewValidation(errors.ErrInvalidConfig, "stream", "Validate", messages...)
}

func (c Config) hasChannel(name string) bool {
	for _, n := range c.SocketNames {
		if n == name {
			return true
		}
	}
	return false
}
