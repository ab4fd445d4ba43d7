// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and reloading.
package config

import (
	"time"
)

// Config is the root configuration structure for Faultline.
type Config struct {
	Version   string          `json:"version"`
	Project   ProjectConfig   `json:"project"`
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Detection DetectionConfig `json:"detection"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Alerts    AlertsConfig    `json:"alerts"`
	Export    ExportConfig    `json:"export"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int    `json:"port"`
	Host    string `json:"host"`
	TLSCert string `json:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key"`  // Path to TLS private key file
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level  string `json:"level"`  // "debug", "info", "warn", "error"
	Format string `json:"format"` // "json", "console"
}

// StorageConfig configures crash report persistence.
type StorageConfig struct {
	Path     string `json:"path"`      // SQLite database path (default: .faultline/reports.db)
	MaxAge   string `json:"max_age"`   // Max age of reports to keep (default: 30d as "720h")
	MaxCount int    `json:"max_count"` // Max number of reports to keep (default: 10000)
}

// DetectionConfig configures the crash detector.
type DetectionConfig struct {
	AppVersion      string  `json:"app_version"`      // Reported application version
	BuildNumber     string  `json:"build_number"`     // Reported build number
	UserID          string  `json:"user_id"`          // Optional user identifier
	HangTimeout     string  `json:"hang_timeout"`     // Heartbeat staleness before a hang report (default: 10s)
	HealthInterval  string  `json:"health_interval"`  // Health check cadence (default: 30s)
	MemoryThreshold float64 `json:"memory_threshold"` // Memory percent considered unhealthy (default: 90)
	QueueSize       int     `json:"queue_size"`       // Report pipeline buffer (default: 64)
}

// AnalysisConfig configures the crash analyzer.
type AnalysisConfig struct {
	Window           string `json:"window"`            // Look-back window (default: 168h)
	MaxReports       int    `json:"max_reports"`       // Cap per analysis run (default: 1000)
	CacheTTL         string `json:"cache_ttl"`         // Result cache lifetime (default: 5m)
	PatternThreshold int    `json:"pattern_threshold"` // Occurrences before a pattern is reported (default: 3)
	TotalSessions    int    `json:"total_sessions"`    // Host-supplied session count for crash-free rate
}

// AlertsConfig configures alert evaluation and delivery.
type AlertsConfig struct {
	EnabledTypes   []string        `json:"enabled_types"`   // Alert types that may fire (empty = all)
	Thresholds     map[string]int  `json:"thresholds"`      // Per-severity hourly crash counts before alerting
	WebhookURL     string          `json:"webhook_url"`     // Webhook endpoint
	WebhookEnabled *bool           `json:"webhook_enabled"` // Webhook delivery switch (unset: enabled when a URL is set)
	HistoryLimit   int             `json:"history_limit"`   // In-memory alert history cap (default: 1000)
	RateLimit      RateLimitConfig `json:"rate_limit"`
	ChannelTimeout string          `json:"channel_timeout"` // Per-channel delivery timeout (default: 10s)
}

// WebhookActive reports whether webhook delivery should be attempted. When
// webhook_enabled is unset, a configured URL implies enabled.
func (a *AlertsConfig) WebhookActive() bool {
	if a.WebhookEnabled != nil {
		return *a.WebhookEnabled
	}
	return a.WebhookURL != ""
}

// RateLimitConfig bounds alert volume per (type, severity) key.
type RateLimitConfig struct {
	Window string `json:"window"` // Sliding window (default: 5m)
	Max    int    `json:"max"`    // Alerts per window (default: 5)
}

// ExportConfig configures dashboard exports.
type ExportConfig struct {
	Dir string `json:"dir"` // Directory for exported JSON snapshots (default: .faultline/exports)
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// ParseRetention parses a duration that may use a day suffix ("30d"),
// returning a default when empty or invalid.
func ParseRetention(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := parseDurationWithDays(s)
	if err != nil {
		return defaultVal
	}
	return d
}
