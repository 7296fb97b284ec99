package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/a6b8/trackerAPI/errors"
)

//go:embed schema.json
var schemaJSON []byte

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "TRACKER"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a loader with validation enabled and the TRACKER env prefix.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  DefaultEnvPrefix,
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables semantic validation after loading.
// Schema validation of every layer always runs.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment override prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every layer and the environment, in that order.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, err
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "encode merged layers")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "decode merged layers")
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadRaw reads one layer, decodes it by extension and checks it against the
// embedded schema.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := readLayer(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "read "+path)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse yaml "+path)
		}
	default:
		if err := checkNesting(data); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "check "+path)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse json "+path)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// validateSchema checks doc against the embedded JSON schema.
func validateSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateSchema", "run schema validation")
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.NewValidation(errors.ErrInvalidConfig, "config", "validateSchema", messages...)
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies <prefix>_* environment variables.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var messages []string
	get := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		val, ok := l.lookupEnv(key)
		if !ok || val == "" {
			return "", false
		}
		if err := checkEnvValue(key, val); err != nil {
			messages = append(messages, err.Error())
			return "", false
		}
		return val, true
	}
	getInt := func(name string, dst *int) {
		if val, ok := get(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				messages = append(messages, fmt.Sprintf("%s_%s must be an integer", l.envPrefix, name))
				return
			}
			*dst = n
		}
	}

	if val, ok := get("URL"); ok {
		cfg.URL = val
	}
	if val, ok := get("SOCKET_NAMES"); ok {
		var names []string
		for _, name := range strings.Split(val, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		cfg.Websocket.SocketNames = names
	}
	getInt("MAX_ATTEMPTS", &cfg.Websocket.MaxAttempts)
	if val, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = val
	}
	if val, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = val
	}
	getInt("METRICS_PORT", &cfg.Metrics.Port)
	getInt("HEALTH_PORT", &cfg.Health.Port)
	if val, ok := get("BRIDGE_CODEC"); ok {
		cfg.Bridge.Codec = val
	}
	if val, ok := get("NATS_URL"); ok {
		cfg.Bridge.NATS.URL = val
	}
	if val, ok := get("REDIS_ADDR"); ok {
		cfg.Bridge.Redis.Addr = val
	}
	if val, ok := get("REDIS_PASSWORD"); ok {
		cfg.Bridge.Redis.Password = val
	}

	return errors.NewValidation(errors.ErrInvalidConfig, "config", "applyEnvOverrides", messages...)
}

// SaveToFile writes cfg as JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.WrapFatal(err, "config", "SaveToFile", "encode config")
	}
	if err := writeLayer(path, data); err != nil {
		return errors.WrapInvalid(err, "config", "SaveToFile", "write "+path)
	}
	return nil
}
