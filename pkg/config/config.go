// Package config loads the runtime's tunables the way the teacher
// loads its own: defaults baked into New(), optionally overridden by a
// YAML file, then by environment variables, adapted from
// pkg/config/config.go's envdecode+godotenv+yaml.v3 layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the optional demo introspection HTTP/WS
// surface (cmd/entityflowd/httpapi).
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
}

// RuntimeConfig carries the tunables spec.md §6 names: structural
// limits on trees, concurrency and stack-depth limits, the default
// output-unpacking policy, and the async invocation timeout.
type RuntimeConfig struct {
	MaxTreeDepth          int           `json:"max_tree_depth" yaml:"max_tree_depth" env:"RUNTIME_MAX_TREE_DEPTH"`
	MaxTreeNodes          int           `json:"max_tree_nodes" yaml:"max_tree_nodes" env:"RUNTIME_MAX_TREE_NODES"`
	MaxConcurrentInvokes  int           `json:"max_concurrent_invokes" yaml:"max_concurrent_invokes" env:"RUNTIME_MAX_CONCURRENT_INVOKES"`
	MaxContextStackDepth  int           `json:"max_context_stack_depth" yaml:"max_context_stack_depth" env:"RUNTIME_MAX_CONTEXT_STACK_DEPTH"`
	DefaultForceUnpack    bool          `json:"default_force_unpack" yaml:"default_force_unpack" env:"RUNTIME_DEFAULT_FORCE_UNPACK"`
	AsyncTimeout          time.Duration `json:"async_timeout" yaml:"async_timeout" env:"RUNTIME_ASYNC_TIMEOUT"`
	SubscriberFanOutLimit int           `json:"subscriber_fan_out_limit" yaml:"subscriber_fan_out_limit" env:"RUNTIME_SUBSCRIBER_FAN_OUT_LIMIT"`
}

// RetentionConfig controls the execution-record/event-log sweep.
type RetentionConfig struct {
	Schedule string        `json:"schedule" yaml:"schedule" env:"RETENTION_SCHEDULE"`
	Window   time.Duration `json:"window" yaml:"window" env:"RETENTION_WINDOW"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`
	Retention RetentionConfig `json:"retention" yaml:"retention"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Runtime: RuntimeConfig{
			MaxTreeDepth:          64,
			MaxTreeNodes:          4096,
			MaxConcurrentInvokes:  32,
			MaxContextStackDepth:  128,
			DefaultForceUnpack:    false,
			AsyncTimeout:          30 * time.Second,
			SubscriberFanOutLimit: 256,
		},
		Retention: RetentionConfig{
			Schedule: "@every 1h",
			Window:   24 * time.Hour,
		},
	}
}

// Load loads configuration from a YAML file (if present) and then
// environment variables, the same two-stage layering as the teacher.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when no tagged fields are present in the
		// environment; treat that as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file, applying it on top
// of the built-in defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
