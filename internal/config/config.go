// Package config provides YAML-based configuration loading for Fieldsync.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Fieldsync configuration, loaded from config.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Notify   NotifyConfig   `yaml:"notify"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Serve    ServeConfig    `yaml:"serve"`
}

// DatabaseConfig selects the local store. SQLite is the device default;
// setting MySQL fields switches to a hub database.
type DatabaseConfig struct {
	Path     string `yaml:"path"` // SQLite file path
	User     string `yaml:"user"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// UseMySQL reports whether the hub database is configured.
func (d DatabaseConfig) UseMySQL() bool {
	return d.Database != ""
}

// RemoteConfig holds the service-of-record endpoint and credentials.
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"` // static bearer token
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// SyncConfig holds retry, backoff, and scheduling parameters for the
// drain loop.
type SyncConfig struct {
	RetryBudget        int           `yaml:"retry_budget"`
	BaseBackoffSeconds int           `yaml:"base_backoff_seconds"`
	MaxBackoffSeconds  int           `yaml:"max_backoff_seconds"`
	Schedule           string        `yaml:"schedule"` // 5-field cron expression
	BaseBackoff        time.Duration `yaml:"-"`
	MaxBackoff         time.Duration `yaml:"-"`
}

// NotifyConfig wires notification targets. All optional.
type NotifyConfig struct {
	Command        string `yaml:"command"` // shell template, e.g. notify-send '{{.Title}}'
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// PricingConfig holds bid defaults.
type PricingConfig struct {
	DefaultTaxRate float64 `yaml:"default_tax_rate"`
}

// ServeConfig holds the dashboard listen address.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "fieldsync.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 30
	}
	c.Remote.Timeout = time.Duration(c.Remote.TimeoutSeconds) * time.Second

	if c.Sync.RetryBudget == 0 {
		c.Sync.RetryBudget = 5
	}
	if c.Sync.BaseBackoffSeconds == 0 {
		c.Sync.BaseBackoffSeconds = 2
	}
	if c.Sync.MaxBackoffSeconds == 0 {
		c.Sync.MaxBackoffSeconds = 120
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "*/5 * * * *"
	}
	c.Sync.BaseBackoff = time.Duration(c.Sync.BaseBackoffSeconds) * time.Second
	c.Sync.MaxBackoff = time.Duration(c.Sync.MaxBackoffSeconds) * time.Second

	if c.Serve.Addr == "" {
		c.Serve.Addr = "127.0.0.1:8090"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Remote.BaseURL == "" {
		errs = append(errs, "remote.base_url is required")
	}
	if c.Database.UseMySQL() && c.Database.User == "" {
		errs = append(errs, "database.user is required with a hub database")
	}
	if c.Sync.RetryBudget < 1 {
		errs = append(errs, "sync.retry_budget must be at least 1")
	}
	if c.Sync.MaxBackoffSeconds < c.Sync.BaseBackoffSeconds {
		errs = append(errs, "sync.max_backoff_seconds must be >= sync.base_backoff_seconds")
	}
	if c.Pricing.DefaultTaxRate < 0 || c.Pricing.DefaultTaxRate > 1 {
		errs = append(errs, "pricing.default_tax_rate must be within [0,1]")
	}
	if (c.Notify.SlackToken == "") != (c.Notify.SlackChannel == "") {
		errs = append(errs, "notify.slack_token and notify.slack_channel go together")
	}
	if (c.Notify.DiscordToken == "") != (c.Notify.DiscordChannel == "") {
		errs = append(errs, "notify.discord_token and notify.discord_channel go together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
