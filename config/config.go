// Package config loads warden configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing, and
// duration fields are written as Go duration strings ("3s", "5m").
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete warden configuration
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Signer    SignerConfig    `yaml:"signer"`
	Store     StoreConfig     `yaml:"store"`
	Events    EventsConfig    `yaml:"events"`
	I18n      I18nConfig      `yaml:"i18n"`
	Logging   LoggingConfig   `yaml:"logging"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// BackendConfig holds the admin API location
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// SignerConfig configures the local key signer
type SignerConfig struct {
	SecretKey   string        `yaml:"secret_key"` // nsec or hex
	Confirm     bool          `yaml:"confirm"`    // prompt before signing
	GracePeriod time.Duration `yaml:"-"`

	GracePeriodRaw string `yaml:"grace_period"`
}

// StoreConfig selects where the admin credential is kept
type StoreConfig struct {
	Driver   string `yaml:"driver"` // file, memory or redis
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
}

// EventsConfig selects where session events are published
type EventsConfig struct {
	Driver   string `yaml:"driver"` // none, gochannel or redis
	RedisURL string `yaml:"redis_url"`
	Topic    string `yaml:"topic"`
}

// I18nConfig holds the message catalog language
type I18nConfig struct {
	Language string `yaml:"language"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DevServerConfig configures the contract backend used for development
type DevServerConfig struct {
	Addr            string        `yaml:"addr"`
	RedisURL        string        `yaml:"redis_url"`
	SessionTTL      time.Duration `yaml:"-"`
	ChallengeWindow time.Duration `yaml:"-"`

	SessionTTLRaw      string `yaml:"session_ttl"`
	ChallengeWindowRaw string `yaml:"challenge_window"`
}

// Default returns a configuration usable without a file
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:9000",
			Timeout: 15 * time.Second,
		},
		Signer: SignerConfig{
			GracePeriod: 3 * time.Second,
		},
		Store: StoreConfig{
			Driver: "file",
			Path:   defaultCredentialPath(),
			Key:    "warden:credential",
		},
		Events: EventsConfig{
			Driver: "none",
			Topic:  "warden.session",
		},
		I18n: I18nConfig{
			Language: "en",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		DevServer: DevServerConfig{
			Addr:            ":9000",
			SessionTTL:      24 * time.Hour,
			ChallengeWindow: 5 * time.Minute,
		},
	}
}

// Load reads a configuration file from the given path on top of Default.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values.
// Empty strings keep the default.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"backend.timeout", cfg.Backend.TimeoutRaw, &cfg.Backend.Timeout},
		{"signer.grace_period", cfg.Signer.GracePeriodRaw, &cfg.Signer.GracePeriod},
		{"devserver.session_ttl", cfg.DevServer.SessionTTLRaw, &cfg.DevServer.SessionTTL},
		{"devserver.challenge_window", cfg.DevServer.ChallengeWindowRaw, &cfg.DevServer.ChallengeWindow},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks that required fields are set and enums hold known values
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Signer.GracePeriod < 0 {
		return fmt.Errorf("signer.grace_period must not be negative")
	}

	switch c.Store.Driver {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file driver")
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Events.Driver {
	case "", "none", "gochannel":
	case "redis":
		if c.Events.RedisURL == "" {
			return fmt.Errorf("events.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}

	return nil
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".warden/credential.json"
	}
	return dir + "/warden/credential.json"
}
