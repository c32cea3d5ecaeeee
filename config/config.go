package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built exactly once (in
// main or a test) and passed by reference into every component constructor;
// components never resolve paths on their own.
type Config struct {
	Home     string         `mapstructure:"home"`
	Database DatabaseConfig `mapstructure:"database"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Tunnel   TunnelConfig   `mapstructure:"tunnel"`
	Mobile   MobileConfig   `mapstructure:"mobile"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // empty = <home>/agentpay.db
}

type ApprovalConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`       // handshake deadline
	PollInterval time.Duration `mapstructure:"poll_interval"` // waitForApproval poll interval
}

type NotifyConfig struct {
	Command    string `mapstructure:"command"`     // shell command, {{url}} placeholder
	WebhookURL string `mapstructure:"webhook_url"` // JSON POST endpoint
}

type TunnelConfig struct {
	Binary       string        `mapstructure:"binary"`
	StartTimeout time.Duration `mapstructure:"start_timeout"`
}

type MobileConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Home, "agentpay.db")
}

// VaultPath returns the encrypted credentials blob location.
func (c *Config) VaultPath() string {
	return filepath.Join(c.Home, "credentials.enc")
}

// KeysDir returns the signing key directory.
func (c *Config) KeysDir() string {
	return filepath.Join(c.Home, "keys")
}

// PublicKeyPath returns the PEM-encoded public signing key location.
func (c *Config) PublicKeyPath() string {
	return filepath.Join(c.KeysDir(), "public.pem")
}

// PrivateKeyPath returns the passphrase-sealed private signing key location.
func (c *Config) PrivateKeyPath() string {
	return filepath.Join(c.KeysDir(), "private.enc")
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: AGENTPAY.
// Nested keys use underscore: AGENTPAY_NOTIFY_COMMAND, AGENTPAY_HOME, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("home", "")
	v.SetDefault("database.path", "")
	v.SetDefault("approval.timeout", "5m")
	v.SetDefault("approval.poll_interval", "2s")
	v.SetDefault("notify.command", "")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("tunnel.binary", "cloudflared")
	v.SetDefault("tunnel.start_timeout", "15s")
	v.SetDefault("mobile.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultHome())
	}

	// Environment variables: AGENTPAY_NOTIFY_COMMAND -> notify.command
	v.SetEnvPrefix("AGENTPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars and defaults can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Home == "" {
		cfg.Home = defaultHome()
	}

	return &cfg, nil
}

func defaultHome() string {
	if home := os.Getenv("AGENTPAY_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".agentpay"
	}
	return filepath.Join(userHome, ".agentpay")
}
