// Package config loads sourcetool settings from an optional YAML file and
// SOURCETOOL_* environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/trysourcetool/sourcetool/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. SOURCETOOL_RELAY_ADDR.
const EnvPrefix = "SOURCETOOL_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverBolt   = "bolt"
	DriverFile   = "file"
)

type Config struct {
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	Relay RelayConfig `mapstructure:"relay" yaml:"relay"`
	Host  HostConfig  `mapstructure:"host" yaml:"host"`
	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type RelayConfig struct {
	Addr             string        `mapstructure:"addr" yaml:"addr"`
	APIKeys          []string      `mapstructure:"api_keys" yaml:"api_keys"`
	OutboundBuffer   int           `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`
	RateLimit        float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst        int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	OrphanGrace      time.Duration `mapstructure:"orphan_grace" yaml:"orphan_grace"`
}

type HostConfig struct {
	Endpoint         string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey           string        `mapstructure:"api_key" yaml:"api_key"`
	PagesDir         string        `mapstructure:"pages_dir" yaml:"pages_dir"`
	ReconnectTimeout time.Duration `mapstructure:"reconnect_timeout" yaml:"reconnect_timeout"`
}

type StoreConfig struct {
	Driver   string        `mapstructure:"driver" yaml:"driver"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	BoltPath string        `mapstructure:"bolt_path" yaml:"bolt_path"`
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	// EncryptionKey is a base64 AES-256 key. When set, snapshots are sealed at rest.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// Redact lists regular expressions; matching widget labels are not persisted.
	Redact []string `mapstructure:"redact" yaml:"redact"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (c StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.fallback_keys set without store.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("store.encryption_key", c.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("store.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// Default returns the settings used for anything the file and environment leave out.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: string(logging.FormatText)},
		Relay: RelayConfig{
			Addr:             ":8080",
			OutboundBuffer:   256,
			RateBurst:        50,
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     10 * time.Second,
			ShutdownTimeout:  10 * time.Second,
			OrphanGrace:      30 * time.Second,
		},
		Host: HostConfig{
			Endpoint:         "ws://localhost:8080/ws/host",
			PagesDir:         "pages",
			ReconnectTimeout: 5 * time.Second,
		},
		Store: StoreConfig{Driver: DriverMemory, BoltPath: "sourcetool.db", Dir: ".sourcetool/sessions"},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "sourcetool:session:"},
	}
}

// Load reads path (skipped when empty) and applies environment overrides on top of Default.
func Load(path string) (Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	applyEnv(raw, environ)

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv maps SOURCETOOL_<SECTION>_<KEY>=value onto raw[section][key].
// Section names never contain underscores, so the first one splits.
func applyEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		if !ok || key == "" {
			continue
		}
		sub, ok := raw[section].(map[string]any)
		if !ok {
			sub = map[string]any{}
			raw[section] = sub
		}
		sub[key] = value
	}
}

// Validate reports settings no component could run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis, DriverBolt, DriverFile:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverBolt && c.Store.BoltPath == "" {
		errs = append(errs, errors.New("store.bolt_path is required for the bolt driver"))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Relay.RateLimit < 0 || c.Relay.RateBurst < 0 {
		errs = append(errs, errors.New("relay rate limit must not be negative"))
	}
	if c.Relay.OrphanGrace < 0 {
		errs = append(errs, errors.New("relay.orphan_grace must not be negative"))
	}
	if c.Relay.OutboundBuffer < 0 {
		errs = append(errs, errors.New("relay.outbound_buffer must not be negative"))
	}
	return errors.Join(errs...)
}

// Logger builds the application logger described by c.Log.
func (c Config) Logger() *slog.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.New(level, logging.Format(c.Log.Format))
}
