// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

// Package config loads service configuration with a clear precedence:
// environment variables over config file over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/estatewatch/internal/recommend"
	"github.com/tomtom215/estatewatch/internal/risk"
)

// EnvPrefix is the prefix for all configuration environment variables.
// A double underscore separates sections: ESTATEWATCH_SERVER__PORT.
const EnvPrefix = "ESTATEWATCH_"

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "ESTATEWATCH_CONFIG"

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/estatewatch/config.yaml",
	"/etc/estatewatch/config.yml",
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig      `json:"server"`
	Database  DatabaseConfig    `json:"database"`
	Verdicts  VerdictsConfig    `json:"verdicts"`
	Logging   LoggingConfig     `json:"logging"`
	Risk      *risk.Config      `json:"risk"`
	Recommend *recommend.Config `json:"recommend"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// CORSAllowedOrigins is empty by default; cross-origin access must be
	// enabled explicitly.
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`

	RateLimitRequests int           `json:"rate_limit_requests"`
	RateLimitWindow   time.Duration `json:"rate_limit_window"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// VerdictsConfig configures the verdict history store. An empty path keeps
// history in memory only.
type VerdictsConfig struct {
	Path string `json:"path"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Caller bool   `json:"caller"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Database:  DatabaseConfig{},
		Verdicts:  VerdictsConfig{},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Risk:      risk.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the config file if one
// exists, then ESTATEWATCH_ environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "json"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration, including the embedded engine configs.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.RateLimitRequests < 1 || c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit invalid: %d per %v",
			c.Server.RateLimitRequests, c.Server.RateLimitWindow)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Risk == nil || c.Recommend == nil {
		return fmt.Errorf("risk and recommend sections are required")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps ESTATEWATCH_SERVER__PORT to server.port. Sections are
// separated by double underscores because field names themselves contain
// single underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
