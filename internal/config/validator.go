// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateServer(cfg, errs)
	v.validateLogging(cfg, errs)
	v.validateStorage(cfg, errs)
	v.validateDetection(cfg, errs)
	v.validateAnalysis(cfg, errs)
	v.validateAlerts(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port != 0 {
		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			errs.Add("server.port", "must be between 0 and 65535")
		}
	}

	// TLS cert and key go together.
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server", "both tls_cert and tls_key must be specified together")
	}
}

func (v *Validator) validateLogging(cfg *Config, errs *ValidationError) {
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.Logging.Level] {
			errs.Add("logging.level", fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", cfg.Logging.Level))
		}
	}

	if cfg.Logging.Format != "" {
		validFormats := map[string]bool{
			"json":    true,
			"console": true,
		}
		if !validFormats[cfg.Logging.Format] {
			errs.Add("logging.format", fmt.Sprintf("invalid format '%s', must be one of: json, console", cfg.Logging.Format))
		}
	}
}

func (v *Validator) validateStorage(cfg *Config, errs *ValidationError) {
	if cfg.Storage.MaxAge != "" {
		d, err := parseDurationWithDays(cfg.Storage.MaxAge)
		if err != nil {
			errs.Add("storage.max_age", fmt.Sprintf("invalid duration format: %s", err))
		} else if d < 0 {
			errs.Add("storage.max_age", "must be positive")
		}
	}
	if cfg.Storage.MaxCount < 0 {
		errs.Add("storage.max_count", "must not be negative")
	}
}

func (v *Validator) validateDetection(cfg *Config, errs *ValidationError) {
	v.checkDuration("detection.hang_timeout", cfg.Detection.HangTimeout, errs)
	v.checkDuration("detection.health_interval", cfg.Detection.HealthInterval, errs)

	if cfg.Detection.MemoryThreshold < 0 || cfg.Detection.MemoryThreshold > 100 {
		errs.Add("detection.memory_threshold", "must be between 0 and 100")
	}
	if cfg.Detection.QueueSize < 0 {
		errs.Add("detection.queue_size", "must not be negative")
	}
}

func (v *Validator) validateAnalysis(cfg *Config, errs *ValidationError) {
	v.checkDuration("analysis.window", cfg.Analysis.Window, errs)
	v.checkDuration("analysis.cache_ttl", cfg.Analysis.CacheTTL, errs)

	if cfg.Analysis.MaxReports < 0 {
		errs.Add("analysis.max_reports", "must not be negative")
	}
	if cfg.Analysis.PatternThreshold < 0 {
		errs.Add("analysis.pattern_threshold", "must not be negative")
	}
	if cfg.Analysis.TotalSessions < 0 {
		errs.Add("analysis.total_sessions", "must not be negative")
	}
}

func (v *Validator) validateAlerts(cfg *Config, errs *ValidationError) {
	validTypes := map[string]bool{
		"crash":       true,
		"memory":      true,
		"performance": true,
		"network":     true,
		"data":        true,
		"security":    true,
	}
	for i, t := range cfg.Alerts.EnabledTypes {
		if !validTypes[t] {
			errs.Add(fmt.Sprintf("alerts.enabled_types[%d]", i),
				fmt.Sprintf("invalid alert type '%s', must be one of: crash, memory, performance, network, data, security", t))
		}
	}

	validSeverities := map[string]bool{
		"low":      true,
		"medium":   true,
		"high":     true,
		"critical": true,
	}
	for sev, n := range cfg.Alerts.Thresholds {
		if !validSeverities[sev] {
			errs.Add("alerts.thresholds",
				fmt.Sprintf("invalid severity '%s', must be one of: low, medium, high, critical", sev))
		}
		if n < 0 {
			errs.Add(fmt.Sprintf("alerts.thresholds.%s", sev), "must not be negative")
		}
	}

	if cfg.Alerts.WebhookURL != "" {
		u, err := url.Parse(cfg.Alerts.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs.Add("alerts.webhook_url", "must be an http or https URL")
		}
	}

	v.checkDuration("alerts.rate_limit.window", cfg.Alerts.RateLimit.Window, errs)
	v.checkDuration("alerts.channel_timeout", cfg.Alerts.ChannelTimeout, errs)

	if cfg.Alerts.RateLimit.Max < 0 {
		errs.Add("alerts.rate_limit.max", "must not be negative")
	}
	if cfg.Alerts.HistoryLimit < 0 {
		errs.Add("alerts.history_limit", "must not be negative")
	}
}

func (v *Validator) checkDuration(field, value string, errs *ValidationError) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		errs.Add(field, fmt.Sprintf("invalid duration format: %s", err))
	} else if d < 0 {
		errs.Add(field, "must be positive")
	}
}

// parseDurationWithDays parses a duration string that may include days (e.g., "30d").
func parseDurationWithDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
