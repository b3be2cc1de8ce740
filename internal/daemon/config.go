// Package daemon manages the Fare server lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all server configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig controls SQLite storage.
type DatabaseConfig struct {
	Dir string `toml:"dir"`
}

// LeaderboardConfig controls snapshot freshness.
type LeaderboardConfig struct {
	RefreshTTL string `toml:"refresh_ttl"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8480,
		},
		Database: DatabaseConfig{
			Dir: fareHome(),
		},
		Leaderboard: LeaderboardConfig{
			RefreshTTL: "60s",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from ~/.fare/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(fareHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.fare/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(fareHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// RefreshTTL parses the configured leaderboard TTL, falling back to a minute.
func (c Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.Leaderboard.RefreshTTL)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// fareHome returns the Fare data directory.
func fareHome() string {
	if env := os.Getenv("FARE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fare")
}

// FareHome is exported for use by other packages.
func FareHome() string {
	return fareHome()
}
