// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package alert decides which crash reports warrant a notification and
// dispatches them to the configured channels.
package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/faultline/internal/report"
)

// ErrWebhookNotConfigured is returned when webhook delivery is requested
// but no endpoint URL is set.
var ErrWebhookNotConfigured = errors.New("webhook URL not configured")

// Severity labels used on outgoing alerts.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
)

// levelFor maps a crash severity to the alert severity label.
func levelFor(sev report.Severity) string {
	switch sev {
	case report.SeverityCritical:
		return LevelCritical
	case report.SeverityHigh:
		return LevelError
	case report.SeverityMedium:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// CrashAlert is one emitted notification.
type CrashAlert struct {
	ID        string            `json:"id"`
	Type      report.AlertType  `json:"type"`
	Severity  string            `json:"severity"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	ReportID  string            `json:"reportId"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Config holds configuration for the alerter.
type Config struct {
	// EnabledTypes lists the alert types that may fire. Nil enables all.
	EnabledTypes map[report.AlertType]bool
	// Thresholds sets, per crash severity, how many crashes must land in
	// the current hour before alerts start firing. Zero entries use the
	// defaults (critical 1, high 3, medium 5, low 10).
	Thresholds map[report.Severity]int
	// SnoozedUntil suppresses all alerts until the given time.
	SnoozedUntil time.Time
	// WebhookURL is the endpoint for webhook delivery. Empty disables it.
	WebhookURL string
	// HistoryLimit bounds the in-memory alert history (default 1000).
	HistoryLimit int
	// RateLimitWindow and RateLimitMax bound alerts per (type, severity)
	// key (defaults: 5 per 5 minutes).
	RateLimitWindow time.Duration
	RateLimitMax    int
	// ChannelTimeout bounds each delivery channel attempt (default 10s).
	ChannelTimeout time.Duration
}

var defaultThresholds = map[report.Severity]int{
	report.SeverityCritical: 1,
	report.SeverityHigh:     3,
	report.SeverityMedium:   5,
	report.SeverityLow:      10,
}

func (c *Config) applyDefaults() {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 1000
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = 5 * time.Minute
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 5
	}
	if c.ChannelTimeout <= 0 {
		c.ChannelTimeout = 10 * time.Second
	}
}

func (c *Config) threshold(sev report.Severity) int {
	if n, ok := c.Thresholds[sev]; ok && n > 0 {
		return n
	}
	return defaultThresholds[sev]
}

func (c *Config) typeEnabled(t report.AlertType) bool {
	if c.EnabledTypes == nil {
		return true
	}
	return c.EnabledTypes[t]
}

// Alerter evaluates crash reports against the alert policy and fans
// deliveries out to its channels.
type Alerter struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger

	channels []Channel

	// hourCounts tracks crashes per severity in the current hour epoch.
	hourEpoch  int64
	hourCounts map[report.Severity]int

	limiter *rateLimiter

	history []*CrashAlert // newest last, trimmed to HistoryLimit

	// sent holds delivery timestamps per severity label for 24h stats.
	sent map[string][]time.Time

	now func() time.Time // Overridable in tests
}

// New creates an alerter with the given delivery channels. Channels are
// attempted independently on every alert.
func New(cfg Config, log zerolog.Logger, channels ...Channel) *Alerter {
	cfg.applyDefaults()
	return &Alerter{
		cfg:        cfg,
		log:        log.With().Str("component", "alerter").Logger(),
		channels:   channels,
		hourCounts: make(map[report.Severity]int),
		limiter:    newRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax),
		sent:       make(map[string][]time.Time),
		now:        time.Now,
	}
}

// Configure replaces the alert policy. Counters and history survive the
// change; the rate limiter restarts with the new window.
func (a *Alerter) Configure(cfg Config) {
	cfg.applyDefaults()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.limiter = newRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
}

// ConfigureThresholds replaces only the per-severity occurrence thresholds,
// leaving the rest of the policy and the rate limiter untouched.
func (a *Alerter) ConfigureThresholds(thresholds map[report.Severity]int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Thresholds = thresholds
}

// Snooze suppresses all alerting for the given duration.
func (a *Alerter) Snooze(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.SnoozedUntil = a.now().Add(d)
	a.log.Info().Time("until", a.cfg.SnoozedUntil).Msg("alerts snoozed")
}

// Unsnooze re-enables alerting immediately.
func (a *Alerter) Unsnooze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.SnoozedUntil = time.Time{}
}

// Snoozed reports whether alerting is currently suppressed.
func (a *Alerter) Snoozed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now().Before(a.cfg.SnoozedUntil)
}

// ShouldAlert decides whether the report triggers a notification. Reports
// of a disabled alert type never touch the counters; snoozed reports do, so
// thresholds reflect reality when the snooze lifts.
func (a *Alerter) ShouldAlert(r *report.CrashReport) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.typeEnabled(report.AlertTypeFor(r.Type)) {
		return false
	}

	now := a.now()

	// Hour buckets reset on epoch change.
	epoch := now.Unix() / 3600
	if epoch != a.hourEpoch {
		a.hourEpoch = epoch
		a.hourCounts = make(map[report.Severity]int)
	}
	a.hourCounts[r.Severity]++

	if now.Before(a.cfg.SnoozedUntil) {
		return false
	}
	if a.hourCounts[r.Severity] < a.cfg.threshold(r.Severity) {
		return false
	}
	return a.limiter.allow(string(r.Type)+"|"+levelFor(r.Severity), now)
}

// SendAlert builds the alert for a report and dispatches it to every
// channel concurrently, each under its own timeout. A channel transport
// failure is logged and does not fail the alert; only a channel that could
// not be attempted at all (such as an unconfigured webhook) does.
func (a *Alerter) SendAlert(ctx context.Context, r *report.CrashReport) error {
	alert := a.buildAlert(r)

	a.mu.Lock()
	a.history = append(a.history, alert)
	if over := len(a.history) - a.cfg.HistoryLimit; over > 0 {
		a.history = a.history[over:]
	}
	a.sent[alert.Severity] = append(a.sent[alert.Severity], alert.Timestamp)
	channels := a.channels
	timeout := a.cfg.ChannelTimeout
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			err := ch.Send(cctx, alert, r)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrWebhookNotConfigured) {
				return fmt.Errorf("channel %s: %w", ch.Name(), err)
			}
			a.log.Warn().Err(err).Str("channel", ch.Name()).Str("alert_id", alert.ID).
				Msg("alert delivery failed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.log.Info().Str("alert_id", alert.ID).Str("severity", alert.Severity).
		Str("type", string(alert.Type)).Msg("alert dispatched")
	return nil
}

func (a *Alerter) buildAlert(r *report.CrashReport) *CrashAlert {
	meta := map[string]string{
		"session_id": r.SessionID,
	}
	if v := r.AppVersion(); v != "" {
		meta["app_version"] = v
	}
	if osv := r.OSVersion(); osv != "" {
		meta["os_version"] = osv
	}
	return &CrashAlert{
		ID:        uuid.NewString(),
		Type:      report.AlertTypeFor(r.Type),
		Severity:  levelFor(r.Severity),
		Title:     fmt.Sprintf("%s crash detected", r.Type),
		Message:   r.Message,
		Timestamp: a.now(),
		ReportID:  r.ID,
		Metadata:  meta,
	}
}

// History returns recorded alerts, most recent first.
func (a *Alerter) History() []*CrashAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*CrashAlert, len(a.history))
	for i, al := range a.history {
		out[len(a.history)-1-i] = al
	}
	return out
}

// ClearHistory drops the recorded alerts.
func (a *Alerter) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// Stats returns, per alert severity label, how many alerts were sent in
// the rolling 24 hours.
func (a *Alerter) Stats() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-24 * time.Hour)
	out := make(map[string]int)
	for level, stamps := range a.sent {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		a.sent[level] = kept
		if len(kept) > 0 {
			out[level] = len(kept)
		}
	}
	return out
}
