// Package config handles configuration loading and validation for relaymux.
package config

import (
	"fmt"
	"net/url"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from files and flags.
type Loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new configuration loader.
func NewLoader(log logrus.FieldLogger) *Loader {
	return &Loader{
		log: log.WithField("component", "config"),
	}
}

// LoadConfig loads configuration from a TOML file, seeded with defaults for
// anything the file omits.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromFlags builds a Config from viper-bound CLI flags.
func (l *Loader) LoadConfigFromFlags(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if val := v.GetString("host"); val != "" {
		cfg.Host = val
	}

	if val := v.GetInt("port"); val != 0 {
		cfg.Port = val
	}

	if relays := v.GetStringSlice("relay"); len(relays) > 0 {
		cfg.Relays = relays
	}

	if val := v.GetString("network"); val != "" {
		cfg.Network = val
	}

	if val := v.GetString("log-level"); val != "" {
		cfg.LogLevel = val
	}

	if val := v.GetString("metrics-addr"); val != "" {
		cfg.MetricsAddr = val
	}

	return cfg, nil
}

// ValidateConfig validates the configuration for consistency and completeness.
//
// Relay URLs are intentionally not validated here: a malformed relay entry
// is dropped with a warning at startup rather than treated as a fatal
// configuration error, so one bad entry in a long relay list doesn't take
// the whole sidecar down.
func ValidateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port: must be between 1 and 65535, got %d", cfg.Port)
	}

	switch cfg.Network {
	case NetworkMainnet, NetworkHolesky, NetworkSepolia:
	case "":
		return fmt.Errorf("network: must not be empty")
	}

	switch cfg.LogLevel {
	case "panic", "fatal", "error", "warn", "warning", "info", "debug", "trace":
	default:
		return fmt.Errorf("log_level: invalid value %q", cfg.LogLevel)
	}

	if cfg.MetricsAddr != "" {
		if _, err := url.Parse("http://" + cfg.MetricsAddr); err != nil {
			return fmt.Errorf("metrics_addr: invalid address %q: %w", cfg.MetricsAddr, err)
		}
	}

	return nil
}

// MergeConfigs merges override config values into the base config.
// Non-zero values in override replace values in base.
func MergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Host != "" {
		result.Host = override.Host
	}

	if override.Port != 0 {
		result.Port = override.Port
	}

	if len(override.Relays) > 0 {
		result.Relays = override.Relays
	}

	if override.Network != "" {
		result.Network = override.Network
	}

	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}

	if override.MetricsAddr != "" {
		result.MetricsAddr = override.MetricsAddr
	}

	return &result
}
