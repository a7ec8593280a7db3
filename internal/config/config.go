// Package config provides YAML-based configuration loading for Loadline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Loadline configuration, loaded from loadline.yaml.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	FMCSA       FMCSAConfig       `yaml:"fmcsa"`
	Negotiation NegotiationConfig `yaml:"negotiation"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Slack       SlackConfig       `yaml:"slack"`
	Digest      DigestConfig      `yaml:"digest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FMCSAConfig holds settings for the carrier eligibility lookup. An empty
// webkey puts the client in mock mode.
type FMCSAConfig struct {
	BaseURL    string `yaml:"base_url"`
	WebKey     string `yaml:"webkey"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// NegotiationConfig holds the rate negotiation policy knobs.
type NegotiationConfig struct {
	CeilingPct float64 `yaml:"ceiling_pct"`
	MaxRounds  int     `yaml:"max_rounds"`
}

// SMTPConfig holds outbound mail settings. Mail is disabled when Host is empty.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SlackConfig holds the booked-call notification settings. Notifications are
// disabled when BotToken is empty.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DigestConfig schedules the periodic metrics digest email. Disabled when
// Schedule is empty.
type DigestConfig struct {
	Schedule string `yaml:"schedule"`
	To       string `yaml:"to"`
}

// Load reads a YAML config file from path and returns a validated Config.
// Environment variables (optionally from a .env file) override secrets.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it only exists in local setups.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
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

// Default returns a Config with all defaults applied and no file input.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// FromEnv returns a Config built from defaults plus environment overrides,
// for running without a config file.
func FromEnv() *Config {
	_ = godotenv.Load()
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Database.Path == "" {
		c.Database.Path = "events.db"
	}
	if c.FMCSA.BaseURL == "" {
		c.FMCSA.BaseURL = "https://mobile.fmcsa.dot.gov/qc/services"
	}
	if c.FMCSA.TimeoutSec == 0 {
		c.FMCSA.TimeoutSec = 10
	}
	if c.Negotiation.CeilingPct == 0 {
		c.Negotiation.CeilingPct = 0.25
	}
	if c.Negotiation.MaxRounds == 0 {
		c.Negotiation.MaxRounds = 3
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
}

// applyEnv overrides secret-bearing fields from the environment so they can
// stay out of the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("FMCSA_WEBKEY"); v != "" {
		c.FMCSA.WebKey = v
	}
	if v := os.Getenv("FMCSA_BASE_URL"); v != "" {
		c.FMCSA.BaseURL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = p
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.SMTP.User = v
		if c.SMTP.From == "" {
			c.SMTP.From = v
		}
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		c.Slack.Channel = v
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Negotiation.CeilingPct < 0 {
		errs = append(errs, "negotiation.ceiling_pct must not be negative")
	}
	if c.Negotiation.MaxRounds < 1 {
		errs = append(errs, "negotiation.max_rounds must be at least 1")
	}
	if c.Digest.Schedule != "" && c.Digest.To == "" {
		errs = append(errs, "digest.to is required when digest.schedule is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
