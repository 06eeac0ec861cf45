package core

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the canteen client.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithBaseURL("https://canteen.example.edu"),
//	    core.WithStorageProvider("file"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// BaseURL is the backend REST endpoint, e.g. "http://localhost:5000".
	BaseURL string `yaml:"base_url" env:"CANTEEN_BASE_URL"`

	// SocketURL is the live-channel endpoint. Derived from BaseURL
	// (http -> ws) when left empty.
	SocketURL string `yaml:"socket_url" env:"CANTEEN_WS_URL"`

	HTTP      HTTPConfig      `yaml:"http"`
	Sync      SyncConfig      `yaml:"sync"`
	Orders    OrdersConfig    `yaml:"orders"`
	Channel   ChannelConfig   `yaml:"channel"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains REST client settings. Timeout applies per request;
// a timed-out call is reported as a generic transport failure and is never
// retried automatically.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"CANTEEN_HTTP_TIMEOUT"`
}

// SyncConfig contains menu mirror synchronization settings.
type SyncConfig struct {
	// MenuPollInterval is the polling cadence used when the live channel
	// is unavailable.
	MenuPollInterval time.Duration `yaml:"menu_poll_interval" env:"CANTEEN_MENU_POLL_INTERVAL"`
}

// OrdersConfig contains order ledger refresh settings.
type OrdersConfig struct {
	StudentPollInterval time.Duration `yaml:"student_poll_interval" env:"CANTEEN_ORDER_POLL_INTERVAL"`
	AdminPollInterval   time.Duration `yaml:"admin_poll_interval" env:"CANTEEN_ADMIN_ORDER_POLL_INTERVAL"`
}

// ChannelConfig contains live channel connection and reconnection settings.
type ChannelConfig struct {
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" env:"CANTEEN_WS_HANDSHAKE_TIMEOUT"`
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"CANTEEN_WS_RECONNECT_ATTEMPTS"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"CANTEEN_WS_RECONNECT_DELAY"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay" env:"CANTEEN_WS_MAX_RECONNECT_DELAY"`
}

// StorageConfig selects the persistence backend for session and cart state.
// Providers: "file" (default, per-user state directory), "memory"
// (tests, nothing survives the process), "redis" (shared kiosk deployments).
type StorageConfig struct {
	Provider  string `yaml:"provider" env:"CANTEEN_STORAGE_PROVIDER"`
	StateDir  string `yaml:"state_dir" env:"CANTEEN_STATE_DIR"`
	RedisURL  string `yaml:"redis_url" env:"CANTEEN_REDIS_URL,REDIS_URL"`
	Namespace string `yaml:"namespace" env:"CANTEEN_STORAGE_NAMESPACE"`
}

// TelemetryConfig contains tracing configuration. Optional: tracing is only
// initialized when Enabled is true. Endpoint is an OTLP gRPC receiver;
// when empty, spans go to stdout (development mode).
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"CANTEEN_TELEMETRY_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"CANTEEN_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"CANTEEN_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"CANTEEN_LOG_LEVEL,LOG_LEVEL"`
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// NewConfig creates a configuration with the three-layer priority applied.
func NewConfig(opts ...Option) (*Config, error) {
	config := DefaultConfig()
	config.applyEnvironment()
	for _, opt := range opts {
		opt(config)
	}
	config.applyDerived()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns the baseline configuration before environment and
// option layers are applied.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:5000",
		HTTP: HTTPConfig{
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			MenuPollInterval: 30 * time.Second,
		},
		Orders: OrdersConfig{
			StudentPollInterval: 5 * time.Second,
			AdminPollInterval:   10 * time.Second,
		},
		Channel: ChannelConfig{
			HandshakeTimeout:  10 * time.Second,
			ReconnectAttempts: 5,
			ReconnectDelay:    1 * time.Second,
			MaxReconnectDelay: 30 * time.Second,
		},
		Storage: StorageConfig{
			Provider:  "file",
			Namespace: "canteen",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "canteen-client",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults, then
// applies environment variables and options as usual.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	config.applyEnvironment()
	for _, opt := range opts {
		opt(config)
	}
	config.applyDerived()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnvironment() {
	setStringEnv(&c.BaseURL, "CANTEEN_BASE_URL")
	setStringEnv(&c.SocketURL, "CANTEEN_WS_URL")
	setDurationEnv(&c.HTTP.Timeout, "CANTEEN_HTTP_TIMEOUT")
	setDurationEnv(&c.Sync.MenuPollInterval, "CANTEEN_MENU_POLL_INTERVAL")
	setDurationEnv(&c.Orders.StudentPollInterval, "CANTEEN_ORDER_POLL_INTERVAL")
	setDurationEnv(&c.Orders.AdminPollInterval, "CANTEEN_ADMIN_ORDER_POLL_INTERVAL")
	setDurationEnv(&c.Channel.HandshakeTimeout, "CANTEEN_WS_HANDSHAKE_TIMEOUT")
	setIntEnv(&c.Channel.ReconnectAttempts, "CANTEEN_WS_RECONNECT_ATTEMPTS")
	setDurationEnv(&c.Channel.ReconnectDelay, "CANTEEN_WS_RECONNECT_DELAY")
	setDurationEnv(&c.Channel.MaxReconnectDelay, "CANTEEN_WS_MAX_RECONNECT_DELAY")
	setStringEnv(&c.Storage.Provider, "CANTEEN_STORAGE_PROVIDER")
	setStringEnv(&c.Storage.StateDir, "CANTEEN_STATE_DIR")
	setStringEnv(&c.Storage.RedisURL, "CANTEEN_REDIS_URL", "REDIS_URL")
	setStringEnv(&c.Storage.Namespace, "CANTEEN_STORAGE_NAMESPACE")
	setBoolEnv(&c.Telemetry.Enabled, "CANTEEN_TELEMETRY_ENABLED")
	setStringEnv(&c.Telemetry.Endpoint, "CANTEEN_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	setStringEnv(&c.Telemetry.ServiceName, "CANTEEN_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
	setStringEnv(&c.Logging.Level, "CANTEEN_LOG_LEVEL", "LOG_LEVEL")
}

// applyDerived fills values computable from others: the socket URL follows
// the base URL unless set explicitly, and the state directory defaults to
// the platform user config dir.
func (c *Config) applyDerived() {
	if c.SocketURL == "" && c.BaseURL != "" {
		ws := c.BaseURL
		switch {
		case strings.HasPrefix(ws, "https://"):
			ws = "wss://" + strings.TrimPrefix(ws, "https://")
		case strings.HasPrefix(ws, "http://"):
			ws = "ws://" + strings.TrimPrefix(ws, "http://")
		}
		c.SocketURL = ws
	}
	if c.Storage.Provider == "file" && c.Storage.StateDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Storage.StateDir = dir + string(os.PathSeparator) + "canteen"
		} else {
			c.Storage.StateDir = ".canteen"
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrMissingConfiguration)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid base URL %q: %v", ErrInvalidConfiguration, c.BaseURL, err)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrInvalidConfiguration)
	}
	if c.Sync.MenuPollInterval <= 0 {
		return fmt.Errorf("%w: menu poll interval must be positive", ErrInvalidConfiguration)
	}
	if c.Orders.StudentPollInterval <= 0 || c.Orders.AdminPollInterval <= 0 {
		return fmt.Errorf("%w: order poll intervals must be positive", ErrInvalidConfiguration)
	}
	if c.Channel.ReconnectAttempts < 0 {
		return fmt.Errorf("%w: reconnect attempts cannot be negative", ErrInvalidConfiguration)
	}
	switch c.Storage.Provider {
	case "file", "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("%w: redis storage requires a redis URL", ErrMissingConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfiguration, c.Storage.Provider)
	}
	return nil
}

// Functional options

// WithBaseURL sets the backend endpoint.
func WithBaseURL(u string) Option {
	return func(c *Config) { c.BaseURL = u }
}

// WithSocketURL sets the live channel endpoint explicitly.
func WithSocketURL(u string) Option {
	return func(c *Config) { c.SocketURL = u }
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) { c.HTTP.Timeout = d }
}

// WithMenuPollInterval sets the polling fallback cadence for the menu mirror.
func WithMenuPollInterval(d time.Duration) Option {
	return func(c *Config) { c.Sync.MenuPollInterval = d }
}

// WithOrderPollIntervals sets the student and admin ledger refresh cadences.
func WithOrderPollIntervals(student, admin time.Duration) Option {
	return func(c *Config) {
		c.Orders.StudentPollInterval = student
		c.Orders.AdminPollInterval = admin
	}
}

// WithStorageProvider selects the persistence backend.
func WithStorageProvider(provider string) Option {
	return func(c *Config) { c.Storage.Provider = provider }
}

// WithStateDir sets the file storage directory.
func WithStateDir(dir string) Option {
	return func(c *Config) { c.Storage.StateDir = dir }
}

// WithRedisURL sets the redis storage backend address.
func WithRedisURL(u string) Option {
	return func(c *Config) {
		c.Storage.Provider = "redis"
		c.Storage.RedisURL = u
	}
}

// WithTelemetry enables tracing against the given OTLP endpoint.
func WithTelemetry(endpoint string) Option {
	return func(c *Config) {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = endpoint
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.Logging.Level = level }
}

// env helpers; the first set variable wins

func setStringEnv(target *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*target = v
			return
		}
	}
}

func setDurationEnv(target *time.Duration, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
			return
		}
	}
}

func setIntEnv(target *int, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				*target = i
			}
			return
		}
	}
}

func setBoolEnv(target *bool, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*target = b
			}
			return
		}
	}
}
