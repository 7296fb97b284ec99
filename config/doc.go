// Package config loads the trackerstream configuration.
//
// Configuration is built in layers: built-in defaults, then every file added
// with AddLayer (JSON or YAML, chosen by extension), then TRACKER_* environment
// variables. Each file is checked against an embedded JSON schema before it is
// merged; the merged result is checked by Config.Validate.
//
//	loader := config.NewLoader()
//	loader.AddLayer("trackerstream.yaml")
//	cfg, err := loader.Load()
//	if err != nil {
//		for _, msg := range errors.Messages(err) {
//			fmt.Println(msg)
//		}
//		return err
//	}
//	client, err := stream.New(cfg.Stream())
//
// Durations accept Go duration strings ("2.5s") or integer milliseconds (2500).
//
// # Environment Overrides
//
//	TRACKER_URL              websocket url including the api key
//	TRACKER_SOCKET_NAMES     comma separated channel names
//	TRACKER_MAX_ATTEMPTS     reconnect attempt budget, 0 = unlimited
//	TRACKER_LOG_LEVEL        debug | info | warn | error
//	TRACKER_LOG_FORMAT       json | text
//	TRACKER_METRICS_PORT     Prometheus port
//	TRACKER_HEALTH_PORT      health port, 0 = serve on the metrics port
//	TRACKER_BRIDGE_CODEC     json | cbor
//	TRACKER_NATS_URL         enables the NATS bridge
//	TRACKER_REDIS_ADDR       enables the Redis bridge
//	TRACKER_REDIS_PASSWORD
//
// # Security
//
// Config files are limited in size and nesting depth, must be regular files
// with a .json, .yaml or .yml extension, and may not contain ".." path
// elements. Config.String masks the API key and the Redis password.
package config
