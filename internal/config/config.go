package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auction   AuctionConfig   `yaml:"auction"`
}

// DatabaseConfig holds store settings. Driver selects the account/event
// backend: "memory" keeps everything in-process, "postgres" persists to a
// database.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "memory" or "postgres"
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings for the health endpoints.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// AuctionConfig holds marketplace defaults.
type AuctionConfig struct {
	// DefaultDurationMinutes is used when an auction is created without
	// an explicit duration.
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	// OpeningBalance is credited to newly registered accounts.
	OpeningBalance float64 `yaml:"opening_balance"`
}

// DefaultDuration returns the configured default auction duration.
func (a AuctionConfig) DefaultDuration() time.Duration {
	return time.Duration(a.DefaultDurationMinutes) * time.Minute
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "memory",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auction-house",
			ServiceVersion: "0.1.0",
		},
		Auction: AuctionConfig{
			DefaultDurationMinutes: 60,
			OpeningBalance:         1000,
		},
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
		// valid
	default:
		return fmt.Errorf("unsupported store driver %q: must be \"memory\" or \"postgres\"", c.Database.Driver)
	}
	if c.Auction.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("auction default_duration_minutes must be positive, got %d", c.Auction.DefaultDurationMinutes)
	}
	if c.Auction.OpeningBalance < 0 {
		return fmt.Errorf("auction opening_balance must not be negative, got %.2f", c.Auction.OpeningBalance)
	}
	return nil
}
