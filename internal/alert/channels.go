// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/report"
)

// Channel delivers one alert. Implementations must honor the context
// deadline; the alerter attempts each channel independently.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *CrashAlert, r *report.CrashReport) error
}

// webhookPayload is the JSON body posted to the webhook endpoint.
type webhookPayload struct {
	Alert webhookAlert `json:"alert"`
	Crash webhookCrash `json:"crash"`
}

type webhookAlert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type webhookCrash struct {
	ID                 string            `json:"id"`
	Type               string            `json:"type"`
	Severity           string            `json:"severity"`
	ErrorMessage       string            `json:"errorMessage"`
	ApplicationVersion string            `json:"applicationVersion"`
	BuildNumber        string            `json:"buildNumber"`
	SystemVersion      string            `json:"systemVersion"`
	DeviceModel        string            `json:"deviceModel"`
	SessionID          string            `json:"sessionId"`
	Timestamp          time.Time         `json:"timestamp"`
	StackTrace         []string          `json:"stackTrace"`
	EnvironmentInfo    map[string]string `json:"environmentInfo"`
}

// WebhookChannel posts alerts to an HTTP endpoint. Any 2xx response counts
// as delivered. The channel stays registered across configuration reloads:
// disabling it makes Send a silent no-op, while an enabled channel with no
// endpoint fails with ErrWebhookNotConfigured.
type WebhookChannel struct {
	mu      sync.RWMutex
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookChannel creates an enabled webhook channel for the given URL. An
// empty URL is allowed; sends then fail with ErrWebhookNotConfigured.
func NewWebhookChannel(url string, client *http.Client) *WebhookChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookChannel{url: url, enabled: true, client: client}
}

// SetURL changes the endpoint. Used on configuration reload.
func (w *WebhookChannel) SetURL(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
}

// SetEnabled switches delivery on or off without unregistering the channel.
func (w *WebhookChannel) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, alert *CrashAlert, r *report.CrashReport) error {
	w.mu.RLock()
	url, enabled := w.url, w.enabled
	w.mu.RUnlock()
	if !enabled {
		return nil
	}
	if url == "" {
		return ErrWebhookNotConfigured
	}

	payload := webhookPayload{
		Alert: webhookAlert{
			ID:        alert.ID,
			Type:      string(alert.Type),
			Severity:  alert.Severity,
			Title:     alert.Title,
			Message:   alert.Message,
			Timestamp: alert.Timestamp,
		},
		Crash: webhookCrash{
			ID:                 r.ID,
			Type:               string(r.Type),
			Severity:           r.Severity.String(),
			ErrorMessage:       r.Message,
			ApplicationVersion: r.AppVersion(),
			BuildNumber:        r.Environment[report.EnvBuildNumber],
			SystemVersion:      r.OSVersion(),
			DeviceModel:        r.Environment[report.EnvDeviceModel],
			SessionID:          r.SessionID,
			Timestamp:          r.Timestamp,
			StackTrace:         r.StackTrace,
			EnvironmentInfo:    r.Environment,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogChannel writes alerts to the structured log. It never fails, so it is
// the fallback channel when nothing else is configured.
type LogChannel struct {
	log zerolog.Logger
}

// NewLogChannel creates a channel that records alerts in the log.
func NewLogChannel(log zerolog.Logger) *LogChannel {
	return &LogChannel{log: log.With().Str("component", "alert-log").Logger()}
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Send(_ context.Context, alert *CrashAlert, r *report.CrashReport) error {
	l.log.Warn().
		Str("alert_id", alert.ID).
		Str("type", string(alert.Type)).
		Str("severity", alert.Severity).
		Str("report_id", r.ID).
		Str("crash_type", string(r.Type)).
		Msg(alert.Title + ": " + alert.Message)
	return nil
}
