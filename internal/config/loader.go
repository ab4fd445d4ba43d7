// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// FindConfig searches for a config file in the current directory.
// It looks for faultline.hjson first, then faultline.json.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"faultline.hjson",
		"faultline.json",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for faultline.hjson, faultline.json)")
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7710
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Storage defaults
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(".faultline", "reports.db")
	}
	if cfg.Storage.MaxAge == "" {
		cfg.Storage.MaxAge = "720h"
	}
	if cfg.Storage.MaxCount == 0 {
		cfg.Storage.MaxCount = 10000
	}

	// Detection defaults
	if cfg.Detection.HangTimeout == "" {
		cfg.Detection.HangTimeout = "10s"
	}
	if cfg.Detection.HealthInterval == "" {
		cfg.Detection.HealthInterval = "30s"
	}
	if cfg.Detection.MemoryThreshold == 0 {
		cfg.Detection.MemoryThreshold = 90
	}
	if cfg.Detection.QueueSize == 0 {
		cfg.Detection.QueueSize = 64
	}

	// Analysis defaults
	if cfg.Analysis.Window == "" {
		cfg.Analysis.Window = "168h"
	}
	if cfg.Analysis.MaxReports == 0 {
		cfg.Analysis.MaxReports = 1000
	}
	if cfg.Analysis.CacheTTL == "" {
		cfg.Analysis.CacheTTL = "5m"
	}
	if cfg.Analysis.PatternThreshold == 0 {
		cfg.Analysis.PatternThreshold = 3
	}

	// Alert defaults
	if cfg.Alerts.HistoryLimit == 0 {
		cfg.Alerts.HistoryLimit = 1000
	}
	if cfg.Alerts.RateLimit.Window == "" {
		cfg.Alerts.RateLimit.Window = "5m"
	}
	if cfg.Alerts.RateLimit.Max == 0 {
		cfg.Alerts.RateLimit.Max = 5
	}
	if cfg.Alerts.ChannelTimeout == "" {
		cfg.Alerts.ChannelTimeout = "10s"
	}

	// Export defaults
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = filepath.Join(".faultline", "exports")
	}
}
