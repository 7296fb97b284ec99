package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/rooms"
	"github.com/a6b8/trackerAPI/stream"
)

// Bridge codecs
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// Log formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config represents the complete application configuration
type Config struct {
	URL       string          `json:"url"`
	Websocket WebsocketConfig `json:"websocket"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
	Health    HealthConfig    `json:"health"`
	Bridge    BridgeConfig    `json:"bridge"`
	Rooms     []RoomConfig    `json:"rooms,omitempty"`
}

// WebsocketConfig mirrors stream.Config.
type WebsocketConfig struct {
	SocketNames             []string `json:"socket_names"`
	ReconnectDelay          Duration `json:"reconnect_delay"`
	ReconnectDelayMax       Duration `json:"reconnect_delay_max"`
	RandomizationFactor     float64  `json:"randomization_factor"`
	MaxAttempts             int      `json:"max_attempts"`
	ImmediateCloseThreshold Duration `json:"immediate_close_threshold"`
	DedupSize               int      `json:"dedup_size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// HealthConfig controls the health endpoint. Port 0 serves /health on the
// metrics server.
type HealthConfig struct {
	Port int `json:"port"`
}

// BridgeConfig enables event bridges. A bridge is enabled when its URL or
// address is set.
type BridgeConfig struct {
	Codec string      `json:"codec"`
	NATS  NATSBridge  `json:"nats"`
	Redis RedisBridge `json:"redis"`
}

// NATSBridge publishes events on <subject_prefix>.<event>.
type NATSBridge struct {
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix"`
}

// RedisBridge publishes events on <channel_prefix>:<event>.
type RedisBridge struct {
	Addr          string `json:"addr,omitempty"`
	Password      string `json:"password,omitempty"`
	DB            int    `json:"db,omitempty"`
	ChannelPrefix string `json:"channel_prefix"`
}

// RoomConfig is a room joined at startup.
type RoomConfig struct {
	RoomID   string         `json:"room_id"`
	Params   map[string]any `json:"params,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
}

// Duration decodes from a Go duration string or from integer milliseconds.
type Duration time.Duration

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "2.5s" or 2500.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: expected string or integer milliseconds", data)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file overrides a field.
func Default() *Config {
	sc := stream.DefaultConfig()
	return &Config{
		Websocket: WebsocketConfig{
			SocketNames:             sc.SocketNames,
			ReconnectDelay:          Duration(sc.ReconnectDelay),
			ReconnectDelayMax:       Duration(sc.ReconnectDelayMax),
			RandomizationFactor:     sc.RandomizationFactor,
			MaxAttempts:             sc.MaxAttempts,
			ImmediateCloseThreshold: Duration(sc.ImmediateCloseThreshold),
			DedupSize:               sc.DedupSize,
		},
		Log:     LogConfig{Level: "info", Format: FormatJSON},
		Metrics: MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
		Bridge: BridgeConfig{
			Codec: CodecJSON,
			NATS:  NATSBridge{SubjectPrefix: "tracker"},
			Redis: RedisBridge{ChannelPrefix: "tracker"},
		},
	}
}

// Stream converts the websocket section to a stream.Config.
func (c *Config) Stream() stream.Config {
	names := make([]string, len(c.Websocket.SocketNames))
	copy(names, c.Websocket.SocketNames)
	return stream.Config{
		URL:                     c.URL,
		SocketNames:             names,
		ReconnectDelay:          c.Websocket.ReconnectDelay.Std(),
		ReconnectDelayMax:       c.Websocket.ReconnectDelayMax.Std(),
		RandomizationFactor:     c.Websocket.RandomizationFactor,
		MaxAttempts:             c.Websocket.MaxAttempts,
		ImmediateCloseThreshold: c.Websocket.ImmediateCloseThreshold.Std(),
		DedupSize:               c.Websocket.DedupSize,
	}
}

// Validate checks the semantic constraints a schema cannot express.
func (c *Config) Validate() error {
	var messages []string

	if err := stream.ValidateURL(c.URL); err != nil {
		messages = append(messages, errors.Messages(err)...)
	}
	if err := c.Stream().Validate(); err != nil {
		messages = append(messages, errors.Messages(err)...)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		messages = append(messages, fmt.Sprintf("log.level '%s' is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != FormatJSON && c.Log.Format != FormatText {
		messages = append(messages, fmt.Sprintf("log.format '%s' is not json or text", c.Log.Format))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		messages = append(messages, fmt.Sprintf("metrics.port %d is out of range", c.Metrics.Port))
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		messages = append(messages, fmt.Sprintf("health.port %d is out of range", c.Health.Port))
	}

	if c.Bridge.Codec != CodecJSON && c.Bridge.Codec != CodecCBOR {
		messages = append(messages, fmt.Sprintf("bridge.codec '%s' is not json or cbor", c.Bridge.Codec))
	}
	if c.Bridge.NATS.URL != "" && !isValidSubjectPrefix(c.Bridge.NATS.SubjectPrefix) {
		messages = append(messages, fmt.Sprintf("bridge.nats.subject_prefix '%s' is not a valid subject", c.Bridge.NATS.SubjectPrefix))
	}
	if c.Bridge.Redis.Addr != "" && c.Bridge.Redis.ChannelPrefix == "" {
		messages = append(messages, "bridge.redis.channel_prefix must not be empty")
	}

	messages = append(messages, c.validateRooms()...)

	return errors.NewValidation(errors.ErrInvalidConfig, "config", "Validate", messages...)
}

func (c *Config) validateRooms() []string {
	var messages []string
	catalog := rooms.Default()
	for i, room := range c.Rooms {
		d, err := catalog.Lookup(room.RoomID)
		if err != nil {
			for _, msg := range errors.Messages(err) {
				messages = append(messages, fmt.Sprintf("rooms[%d]: %s", i, msg))
			}
			continue
		}
		for _, msg := range d.Validate(room.Params) {
			messages = append(messages, fmt.Sprintf("rooms[%d]: %s", i, msg))
		}
	}
	return messages
}

// isValidSubjectPrefix accepts dot separated tokens without NATS wildcards.
func isValidSubjectPrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" || strings.ContainsAny(part, "*> \t") {
			return false
		}
	}
	return true
}

// String returns the configuration as indented JSON with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Bridge.Redis.Password != "" {
		masked.Bridge.Redis.Password = "***"
	}
	if i := strings.LastIndex(masked.URL, "/"); i > len("wss://") {
		masked.URL = masked.URL[:i+1] + "***"
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
