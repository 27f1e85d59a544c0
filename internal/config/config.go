// Package config loads the hearth configuration.
//
// Values are layered: Default(), then an optional YAML file, then
// HEARTH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "HEARTH"

// DevelopmentSecret is the hashing secret used when none is configured.
// It is rejected in production.
const DevelopmentSecret = "thisIsASecret"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete application configuration.
type Config struct {
	Env       string          `yaml:"env" envconfig:"ENV"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Mail      MailConfig      `yaml:"mail" envconfig:"MAIL"`
	Checkout  CheckoutConfig  `yaml:"checkout" envconfig:"CHECKOUT"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr defaults to :3000 in development and :5000 in production.
	Addr              string        `yaml:"addr" envconfig:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`

	// TrustProxy takes the client address from proxy headers; set it only behind a proxy.
	TrustProxy bool `yaml:"trust_proxy" envconfig:"TRUST_PROXY"`
}

// StoreConfig configures the record store.
type StoreConfig struct {
	DataDir  string `yaml:"data_dir" envconfig:"DATA_DIR"`
	KeyLocks bool   `yaml:"key_locks" envconfig:"KEY_LOCKS"`
	Watch    bool   `yaml:"watch" envconfig:"WATCH"`
}

// AuthConfig configures password hashing and tokens.
type AuthConfig struct {
	HashingSecret string        `yaml:"hashing_secret" envconfig:"HASHING_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// MailConfig configures receipt emails.
type MailConfig struct {
	From string `yaml:"from" envconfig:"FROM"`
}

// CheckoutConfig configures order charging.
type CheckoutConfig struct {
	Currency string `yaml:"currency" envconfig:"CURRENCY"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Store: StoreConfig{
			DataDir:  ".data",
			KeyLocks: true,
		},
		Auth: AuthConfig{
			HashingSecret: DevelopmentSecret,
			TokenTTL:      time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     20,
			Burst:   40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Mail: MailConfig{
			From: "orders@hearth.local",
		},
		Checkout: CheckoutConfig{
			Currency: "usd",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// HEARTH_CONFIG is consulted; a missing file named by either is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyEnvDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// mergeFile overlays the YAML file on top of the current values.
// Keys absent from the file keep their value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvDefaults() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	if c.Server.Addr == "" {
		port := 3000
		if c.Env == EnvProduction {
			port = 5000
		}
		c.Server.Addr = ":" + strconv.Itoa(port)
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid server addr %q: %v", c.Server.Addr, err))
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %q", port))
	}

	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Store.DataDir == "" {
		errs = append(errs, errors.New("store.data_dir is required"))
	}
	if c.Auth.HashingSecret == "" {
		errs = append(errs, errors.New("auth.hashing_secret is required"))
	}
	if c.Env == EnvProduction && c.Auth.HashingSecret == DevelopmentSecret {
		errs = append(errs, errors.New("auth.hashing_secret must be changed in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive when enabled"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
