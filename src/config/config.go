// Package config provides configuration management for provisioner-watch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an optional YAML file. Environment variables override its values.
const EnvConfigFile = "PROVISIONER_WATCH_CONFIG"

const (
	defaultPendingInterval = 250 * time.Millisecond
	defaultRunningInterval = time.Second
	defaultCacheSize       = 512
)

// Config holds the application configuration.
type Config struct {
	// CoderURL is the base URL of the Coder deployment.
	CoderURL string `yaml:"coder_url"`
	// SessionToken authenticates requests to the Coder API.
	SessionToken string `yaml:"session_token"`

	// RedpandaBrokers and PostgresDSN switch the watcher into distributed
	// mode when both are set.
	RedpandaBrokers []string `yaml:"redpanda_brokers"`
	PostgresDSN     string   `yaml:"postgres_dsn"`

	PendingInterval time.Duration `yaml:"pending_interval"`
	RunningInterval time.Duration `yaml:"running_interval"`
	CacheSize       int           `yaml:"cache_size"`
}

// Distributed reports whether both the broker and the database are configured.
func (c *Config) Distributed() bool {
	return len(c.RedpandaBrokers) > 0 && c.PostgresDSN != ""
}

// LoadFromEnv loads configuration from the optional config file and environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		PendingInterval: defaultPendingInterval,
		RunningInterval: defaultRunningInterval,
		CacheSize:       defaultCacheSize,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("CODER_URL"); v != "" {
		cfg.CoderURL = v
	}
	if v := os.Getenv("CODER_SESSION_TOKEN"); v != "" {
		cfg.SessionToken = v
	}
	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		cfg.RedpandaBrokers = splitList(v)
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}

	var err error
	if cfg.PendingInterval, err = durationEnv("PROVISIONER_WATCH_PENDING_INTERVAL", cfg.PendingInterval); err != nil {
		return nil, err
	}
	if cfg.RunningInterval, err = durationEnv("PROVISIONER_WATCH_RUNNING_INTERVAL", cfg.RunningInterval); err != nil {
		return nil, err
	}
	if v := os.Getenv("PROVISIONER_WATCH_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("PROVISIONER_WATCH_CACHE_SIZE must be a positive integer, got %q", v)
		}
		cfg.CacheSize = size
	}

	if cfg.CoderURL == "" {
		return nil, fmt.Errorf("CODER_URL environment variable is required")
	}
	if cfg.SessionToken == "" {
		return nil, fmt.Errorf("CODER_SESSION_TOKEN environment variable is required")
	}
	if cfg.PendingInterval <= 0 || cfg.RunningInterval <= 0 {
		return nil, fmt.Errorf("poll intervals must be positive")
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 250ms: %w", name, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
