// Package config loads the identityd YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel          string              `yaml:"log_level"`
	Database          DatabaseConfig      `yaml:"database"`
	HTTP              HTTPConfig          `yaml:"http"`
	ObservabilityHTTP ObservabilityConfig `yaml:"observability_http"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	AuthToken string `yaml:"auth_token"`
}

type ObservabilityConfig struct {
	Addr    string `yaml:"addr"`
	Pprof   bool   `yaml:"pprof"`
	Metrics bool   `yaml:"metrics"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database.path is required")
	}
	if cfg.HTTP.Enabled {
		if cfg.HTTP.Listen == "" {
			cfg.HTTP.Listen = "127.0.0.1:8642"
		}
		if cfg.HTTP.AuthToken == "" {
			return nil, fmt.Errorf("http.auth_token is required when http.enabled is set")
		}
	}

	return &cfg, nil
}

func (c *Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
