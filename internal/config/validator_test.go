// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Version = "1"
	cfg.Project.Name = "svc"
	return cfg
}

func TestValidator_ValidConfig(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(validConfig()))
}

func TestValidator_ServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidator_TLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TLSCert = "/etc/ssl/cert.pem"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls_cert and tls_key")
}

func TestValidator_LoggingLevelAndFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestValidator_StorageMaxAge(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.MaxAge = "fortnight"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.max_age")

	cfg.Storage.MaxAge = "30d"
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidator_DetectionBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.MemoryThreshold = 150
	cfg.Detection.HangTimeout = "soon"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detection.memory_threshold")
	assert.Contains(t, err.Error(), "detection.hang_timeout")
}

func TestValidator_AlertTypesAndSeverities(t *testing.T) {
	cfg := validConfig()
	cfg.Alerts.EnabledTypes = []string{"crash", "pager"}
	cfg.Alerts.Thresholds = map[string]int{"severe": 1}
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enabled_types[1]")
	assert.Contains(t, err.Error(), "invalid severity 'severe'")
}

func TestValidator_WebhookURL(t *testing.T) {
	cfg := validConfig()
	cfg.Alerts.WebhookURL = "ftp://example.com/hook"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alerts.webhook_url")

	cfg.Alerts.WebhookURL = "https://hooks.example.com/crash"
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidationError_Aggregates(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = -1
	cfg.Logging.Level = "loud"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Len(t, verr.Errors, 2)
	assert.True(t, strings.Contains(err.Error(), "server.port") && strings.Contains(err.Error(), "logging.level"))
}
