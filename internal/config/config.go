// Package config loads the simulation server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Simserver holds all configuration for the simulation server.
type Simserver struct {
	// Network (observer endpoint)
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Simulation
	TickRateHz int `yaml:"tick_rate_hz"`

	// Data tables
	AttributeTablePath string `yaml:"attribute_table"`
	EffectTablePath    string `yaml:"effect_table"`
	TriggerTablePath   string `yaml:"trigger_table"`

	// Snapshots
	SnapshotPath string `yaml:"snapshot_path"`

	// Database
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultSimserver returns a Simserver config with sensible defaults.
func DefaultSimserver() Simserver {
	return Simserver{
		BindAddress:        "0.0.0.0",
		Port:               7777,
		TickRateHz:         10,
		AttributeTablePath: "data/attributes.yaml",
		EffectTablePath:    "data/effects.yaml",
		TriggerTablePath:   "data/triggers.yaml",
		SnapshotPath:       "snapshots",
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "tdrpg",
			DBName:  "tdrpg",
			SSLMode: "disable",
		},
	}
}

// LoadSimserver reads the config file at path over the defaults.
func LoadSimserver(path string) (Simserver, error) {
	cfg := DefaultSimserver()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.TickRateHz <= 0 {
		return cfg, fmt.Errorf("config %s: tick_rate_hz must be positive", path)
	}
	return cfg, nil
}
