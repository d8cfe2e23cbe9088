package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Transport names accepted by HostConfig.Transport.
const (
	TransportLocal     = "local"
	TransportWebSocket = "ws"
	TransportGRPC      = "grpc"
	TransportHTTP      = "http"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Bridge    BridgeConfig    `toml:"bridge" yaml:"bridge"`
	Host      HostConfig      `toml:"host" yaml:"host"`
	Script    ScriptConfig    `toml:"script" yaml:"script"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
}

// ServerConfig holds the host process listeners.
type ServerConfig struct {
	Port     string `envconfig:"PORT" toml:"port" yaml:"port"`
	Host     string `envconfig:"HOST" toml:"host" yaml:"host"`
	GRPCPort string `envconfig:"GRPC_PORT" toml:"grpc_port" yaml:"grpc_port"`
}

// BridgeConfig holds per execution context policy.
type BridgeConfig struct {
	// AutoFlush posts a deferred flush to the context loop whenever a batch opens.
	AutoFlush bool `envconfig:"BRIDGE_AUTO_FLUSH" toml:"auto_flush" yaml:"auto_flush"`
	// Notify controls whether ScheduleUpdate reaches the host. Deployment policy only.
	Notify         bool    `envconfig:"BRIDGE_NOTIFY" toml:"notify" yaml:"notify"`
	SanitizeHTML   bool    `envconfig:"BRIDGE_SANITIZE_HTML" toml:"sanitize_html" yaml:"sanitize_html"`
	ViewportWidth  float64 `envconfig:"VIEWPORT_WIDTH" toml:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64 `envconfig:"VIEWPORT_HEIGHT" toml:"viewport_height" yaml:"viewport_height"`
}

// HostConfig selects the host implementation and its connection settings.
type HostConfig struct {
	Transport         string        `envconfig:"HOST_TRANSPORT" toml:"transport" yaml:"transport"`
	Address           string        `envconfig:"HOST_ADDR" toml:"address" yaml:"address"`
	Timeout           time.Duration `envconfig:"HOST_TIMEOUT" toml:"timeout" yaml:"timeout"`
	CompressThreshold int           `envconfig:"HOST_COMPRESS_THRESHOLD" toml:"compress_threshold" yaml:"compress_threshold"`
	MaxFailures       uint32        `envconfig:"BREAKER_MAX_FAILURES" toml:"max_failures" yaml:"max_failures"`
	OpenTimeout       time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" toml:"open_timeout" yaml:"open_timeout"`
}

// ScriptConfig holds JavaScript runtime limits.
type ScriptConfig struct {
	Timeout  time.Duration `envconfig:"SCRIPT_TIMEOUT" toml:"timeout" yaml:"timeout"`
	PoolSize int           `envconfig:"SCRIPT_POOL_SIZE" toml:"pool_size" yaml:"pool_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development" yaml:"development"`
	File        string `envconfig:"LOG_FILE" toml:"file" yaml:"file"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled" yaml:"enabled"`
}

// Load loads configuration from environment variables on top of Default.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile layers a TOML or YAML file between Default and the environment.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decodeFile(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values that would otherwise fail later and far from the source.
func (c *Config) Validate() error {
	var errs []error
	switch c.Host.Transport {
	case TransportLocal, TransportWebSocket, TransportGRPC, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown host transport %q", c.Host.Transport))
	}
	if c.Host.Transport != TransportLocal && c.Host.Address == "" {
		errs = append(errs, errors.New("host address is required for remote transports"))
	}
	if c.Host.Timeout <= 0 {
		errs = append(errs, errors.New("host timeout must be positive"))
	}
	if c.Bridge.ViewportWidth <= 0 || c.Bridge.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport must have a positive size"))
	}
	if c.Script.PoolSize < 0 {
		errs = append(errs, errors.New("script pool size must not be negative"))
	}
	return errors.Join(errs...)
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     "8000",
			Host:     "0.0.0.0",
			GRPCPort: "50061",
		},
		Bridge: BridgeConfig{
			AutoFlush:      true,
			Notify:         true,
			SanitizeHTML:   false,
			ViewportWidth:  1024,
			ViewportHeight: 768,
		},
		Host: HostConfig{
			Transport:         TransportLocal,
			Timeout:           10 * time.Second,
			CompressThreshold: 4096,
			MaxFailures:       5,
			OpenTimeout:       30 * time.Second,
		},
		Script: ScriptConfig{
			Timeout:  30 * time.Second,
			PoolSize: 4,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
