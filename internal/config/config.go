package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"github.com/vmorsell/app-mixer/internal/ratelimit"
)

// Config holds settings shared by the mixer CLI and daemon.
type Config struct {
	// Daemon
	ListenAddr   string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxClients   int           `mapstructure:"max_clients" yaml:"max_clients"`

	// Per-client command throttling
	MutationRateLimit float64 `mapstructure:"mutation_rate_limit" yaml:"mutation_rate_limit"`
	MutationBurst     int     `mapstructure:"mutation_burst" yaml:"mutation_burst"`

	// Backend
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	PulseServer      string        `mapstructure:"pulse_server" yaml:"pulse_server"`
	ClientName       string        `mapstructure:"client_name" yaml:"client_name"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        "127.0.0.1:8765",
		PollInterval:      time.Second,
		MaxClients:        10,
		MutationRateLimit: ratelimit.DefaultMutationRateLimit,
		MutationBurst:     ratelimit.DefaultMutationBurst,
		OperationTimeout:  5 * time.Second,
		ClientName:        "app-mixer",
		LogLevel:          "info",
	}
}

// Load reads configuration from configFile, or from mixer.yaml in the user
// config directory when configFile is empty, then applies MIXER_* environment
// overrides. A missing default file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("max_clients", cfg.MaxClients)
	v.SetDefault("mutation_rate_limit", cfg.MutationRateLimit)
	v.SetDefault("mutation_burst", cfg.MutationBurst)
	v.SetDefault("operation_timeout", cfg.OperationTimeout)
	v.SetDefault("pulse_server", cfg.PulseServer)
	v.SetDefault("client_name", cfg.ClientName)
	v.SetDefault("log_level", cfg.LogLevel)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mixer")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MIXER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	case c.OperationTimeout <= 0:
		return fmt.Errorf("operation_timeout must be positive, got %v", c.OperationTimeout)
	case c.MaxClients < 1:
		return fmt.Errorf("max_clients must be at least 1, got %d", c.MaxClients)
	case c.MutationRateLimit <= 0:
		return fmt.Errorf("mutation_rate_limit must be positive, got %v", c.MutationRateLimit)
	case c.MutationBurst < 1:
		return fmt.Errorf("mutation_burst must be at least 1, got %d", c.MutationBurst)
	}
	return nil
}

func configDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, "app-mixer")
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "app-mixer")
	}
	return "."
}
