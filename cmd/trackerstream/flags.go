package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/a6b8/trackerAPI/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Rooms           roomFlags
	Print           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
}

// roomFlags collects repeated -room values of the form
// "roomId" or "roomId?param=value&param=value".
type roomFlags []config.RoomConfig

func (r *roomFlags) String() string {
	ids := make([]string, len(*r))
	for i, room := range *r {
		ids[i] = room.RoomID
	}
	return strings.Join(ids, ",")
}

func (r *roomFlags) Set(value string) error {
	room, err := parseRoom(value)
	if err != nil {
		return err
	}
	*r = append(*r, room)
	return nil
}

func parseRoom(value string) (config.RoomConfig, error) {
	id, query, _ := strings.Cut(value, "?")
	if id == "" {
		return config.RoomConfig{}, fmt.Errorf("room id missing in %q", value)
	}

	room := config.RoomConfig{RoomID: id}
	if query == "" {
		return room, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return config.RoomConfig{}, fmt.Errorf("room %s: %w", id, err)
	}
	room.Params = make(map[string]any, len(values))
	for key := range values {
		v := values.Get(key)
		if key == "strategy" {
			room.Strategy = v
			continue
		}
		// Numbers decode the same way they would from a config file.
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			room.Params[key] = f
			continue
		}
		room.Params[key] = v
	}
	return room, nil
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config", getEnv("TRACKER_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: TRACKER_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getEnv("TRACKER_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: TRACKER_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (overrides config)")
	fs.Var(&cfg.Rooms, "room",
		"Room to join, repeatable: roomId or roomId?param=value&strategy=name")
	fs.BoolVar(&cfg.Print, "print", false,
		"Print received events to stdout as JSON lines (logs go to stderr)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("TRACKER_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: TRACKER_SHUTDOWN_TIMEOUT)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := validateFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !contains([]string{config.FormatJSON, config.FormatText}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - real-time Solana market data subscriptions

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Follow one pool and print its price updates
  TRACKER_URL=wss://datastream.solanatracker.io/<key> %s -print -room 'priceUpdates?poolId=<pool>'

  # Run from a config file and forward events to NATS
  TRACKER_NATS_URL=nats://localhost:4222 %s -config trackerstream.yaml

  # Validate configuration only
  %s -config trackerstream.yaml -validate

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
