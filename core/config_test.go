package core

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Sync.MenuPollInterval)
	assert.Equal(t, 5*time.Second, cfg.Orders.StudentPollInterval)
	assert.Equal(t, 10*time.Second, cfg.Orders.AdminPollInterval)
	assert.Equal(t, 5, cfg.Channel.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Channel.ReconnectDelay)
	assert.Equal(t, "file", cfg.Storage.Provider)
}

func TestNewConfigDerivesSocketURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"http to ws", "http://canteen.example.edu", "ws://canteen.example.edu"},
		{"https to wss", "https://canteen.example.edu", "wss://canteen.example.edu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(WithBaseURL(tt.base), WithStorageProvider("memory"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.SocketURL)
		})
	}
}

func TestNewConfigExplicitSocketURLWins(t *testing.T) {
	cfg, err := NewConfig(
		WithBaseURL("http://canteen.example.edu"),
		WithSocketURL("ws://push.example.edu"),
		WithStorageProvider("memory"),
	)
	require.NoError(t, err)
	assert.Equal(t, "ws://push.example.edu", cfg.SocketURL)
}

func TestNewConfigEnvironmentLayer(t *testing.T) {
	os.Setenv("CANTEEN_BASE_URL", "http://env.example.edu")
	os.Setenv("CANTEEN_MENU_POLL_INTERVAL", "45s")
	defer os.Unsetenv("CANTEEN_BASE_URL")
	defer os.Unsetenv("CANTEEN_MENU_POLL_INTERVAL")

	cfg, err := NewConfig(WithStorageProvider("memory"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.edu", cfg.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Sync.MenuPollInterval)
}

func TestNewConfigOptionsBeatEnvironment(t *testing.T) {
	os.Setenv("CANTEEN_BASE_URL", "http://env.example.edu")
	defer os.Unsetenv("CANTEEN_BASE_URL")

	cfg, err := NewConfig(
		WithBaseURL("http://option.example.edu"),
		WithStorageProvider("memory"),
	)
	require.NoError(t, err)
	assert.Equal(t, "http://option.example.edu", cfg.BaseURL)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.BaseURL = "" }},
		{"zero http timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"zero menu poll interval", func(c *Config) { c.Sync.MenuPollInterval = 0 }},
		{"zero order poll interval", func(c *Config) { c.Orders.StudentPollInterval = 0 }},
		{"negative reconnect attempts", func(c *Config) { c.Channel.ReconnectAttempts = -1 }},
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "etcd" }},
		{"redis without URL", func(c *Config) { c.Storage.Provider = "redis"; c.Storage.RedisURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := t.TempDir() + "/canteen.yaml"
	content := []byte("base_url: http://file.example.edu\nstorage:\n  provider: memory\nsync:\n  menu_poll_interval: 20s\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file.example.edu", cfg.BaseURL)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, 20*time.Second, cfg.Sync.MenuPollInterval)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(t.TempDir() + "/nope.yaml")
	assert.Error(t, err)
}
