// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the crash pipeline together: detector, store, analyzer,
// alerter, and the HTTP API, all driven by one configuration.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/alert"
	"github.com/wingedpig/faultline/internal/analyze"
	"github.com/wingedpig/faultline/internal/api"
	"github.com/wingedpig/faultline/internal/api/handlers"
	"github.com/wingedpig/faultline/internal/config"
	"github.com/wingedpig/faultline/internal/detect"
	"github.com/wingedpig/faultline/internal/logger"
	"github.com/wingedpig/faultline/internal/report"
	"github.com/wingedpig/faultline/internal/store"
	"github.com/wingedpig/faultline/internal/sysinfo"
)

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
	Version    string // Application version string
}

// App is the pipeline coordinator. It owns every component's lifecycle and
// exposes the aggregate views (dashboard, export) the API serves.
type App struct {
	mu sync.RWMutex

	configPath string
	version    string
	config     *config.Config
	log        zerolog.Logger

	collector *sysinfo.Collector
	store     *store.SQLiteStore
	detector  *detect.Detector
	analyzer  *analyze.Analyzer
	alerter   *alert.Alerter
	webhook   *alert.WebhookChannel
	watcher   *config.Watcher
	apiServer *api.Server

	subs   map[int]chan handlers.Event
	nextID int

	maintCancel context.CancelFunc
	maintWG     sync.WaitGroup

	done     chan struct{}
	stopOnce sync.Once
}

// New creates the app from a config file. Pass an empty path to run on
// defaults.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		subs:       make(map[int]chan handlers.Event),
		done:       make(chan struct{}),
	}

	var cfg *config.Config
	if opts.ConfigPath != "" {
		loaded, err := config.NewLoader().LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := config.NewValidator().Validate(loaded); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
	app.config = cfg

	app.log = logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return app, nil
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.collector = sysinfo.NewCollector()

	st, err := store.New(store.Config{
		Path:     cfg.Storage.Path,
		MaxAge:   config.ParseRetention(cfg.Storage.MaxAge, 30*24*time.Hour),
		MaxCount: cfg.Storage.MaxCount,
	})
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	app.store = st

	app.analyzer = analyze.New(analysisConfig(cfg), app.log, st)

	// The webhook channel is always registered so a hot reload can switch it
	// on or off; a disabled channel sends nothing.
	app.webhook = alert.NewWebhookChannel(cfg.Alerts.WebhookURL, nil)
	app.webhook.SetEnabled(cfg.Alerts.WebhookActive())
	app.alerter = alert.New(alertConfig(cfg), app.log,
		alert.NewLogChannel(app.log), app.webhook)

	app.detector = detect.New(detectConfig(cfg), app.log, app.collector,
		detect.WithSaver(st),
		detect.WithAlerter(&alertBridge{app: app}),
		detect.WithObserver(func(r *report.CrashReport) {
			app.publish(handlers.Event{Kind: "report", Timestamp: time.Now(), Report: r})
		}),
	)

	if app.configPath != "" {
		app.watcher = config.NewWatcher(app.configPath, app.log, app.applyConfig)
	}

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, api.Dependencies{
		Coordinator: app,
		Store:       app.store,
		Analyzer:    app.analyzer,
		Alerter:     app.alerter,
		Log:         app.log,
		Version:     app.version,
	})

	return nil
}

// Start begins monitoring, maintenance, config watching, and serving.
// ListenAndServe runs on a background goroutine; its terminal error is
// logged, not returned.
func (app *App) Start(ctx context.Context) error {
	app.detector.StartMonitoring()

	if app.watcher != nil {
		if err := app.watcher.Start(); err != nil {
			app.log.Warn().Err(err).Msg("config hot reload unavailable")
		}
	}

	mctx, cancel := context.WithCancel(context.Background())
	app.maintCancel = cancel
	app.maintWG.Add(1)
	go app.maintenanceLoop(mctx)

	go func() {
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Error().Err(err).Msg("api server terminated")
		}
	}()

	app.log.Info().
		Str("version", app.version).
		Str("addr", fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port)).
		Msg("faultline started")
	return nil
}

// Shutdown stops all components in reverse order of startup.
func (app *App) Shutdown(ctx context.Context) error {
	var err error
	app.stopOnce.Do(func() {
		close(app.done)

		if app.apiServer != nil {
			err = app.apiServer.Shutdown(ctx)
		}
		if app.maintCancel != nil {
			app.maintCancel()
			app.maintWG.Wait()
		}
		if app.watcher != nil {
			app.watcher.Stop()
		}
		if app.detector != nil {
			app.detector.StopMonitoring()
		}

		app.mu.Lock()
		for id, ch := range app.subs {
			close(ch)
			delete(app.subs, id)
		}
		app.mu.Unlock()

		if app.store != nil {
			if cerr := app.store.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		app.log.Info().Msg("faultline stopped")
	})
	return err
}

// Done returns a channel closed on shutdown.
func (app *App) Done() <-chan struct{} { return app.done }

// Detector exposes the detector for host-application integration points
// (heartbeat, breadcrumbs, panic capture).
func (app *App) Detector() *detect.Detector { return app.detector }

// Store exposes the report store.
func (app *App) Store() *store.SQLiteStore { return app.store }

// Analyzer exposes the crash analyzer.
func (app *App) Analyzer() *analyze.Analyzer { return app.analyzer }

// Alerter exposes the alert manager.
func (app *App) Alerter() *alert.Alerter { return app.alerter }

// Subscribe registers for pipeline events. The returned cancel func must be
// called to release the subscription. Slow subscribers miss events rather
// than stalling the pipeline.
func (app *App) Subscribe() (<-chan handlers.Event, func()) {
	app.mu.Lock()
	defer app.mu.Unlock()

	id := app.nextID
	app.nextID++
	ch := make(chan handlers.Event, 32)
	app.subs[id] = ch

	return ch, func() {
		app.mu.Lock()
		defer app.mu.Unlock()
		if c, ok := app.subs[id]; ok {
			delete(app.subs, id)
			close(c)
		}
	}
}

func (app *App) publish(ev handlers.Event) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	for _, ch := range app.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// HealthScore rates the last hour: each crash costs ten points.
func (app *App) HealthScore(ctx context.Context) int {
	reports, err := app.store.Query(ctx, 0, time.Now().Add(-time.Hour))
	if err != nil {
		app.log.Warn().Err(err).Msg("health score query failed")
		return 0
	}
	score := 100 - 10*len(reports)
	if score < 0 {
		score = 0
	}
	return score
}

// BuildDashboard aggregates the current state of every component. Component
// failures degrade the snapshot instead of failing it: the dashboard must
// stay available while the pipeline is limping.
func (app *App) BuildDashboard(ctx context.Context) *handlers.Dashboard {
	d := &handlers.Dashboard{
		GeneratedAt: time.Now(),
		Monitoring:  app.detector.IsMonitoring(),
		Healthy:     app.detector.Healthy(),
		HealthScore: app.HealthScore(ctx),
		SessionID:   app.detector.SessionID(),
		Uptime:      app.collector.Uptime(),
		AlertStats:  app.alerter.Stats(),
	}

	if stats, err := app.store.Statistics(ctx); err == nil {
		d.Statistics = *stats
	} else {
		app.log.Warn().Err(err).Msg("dashboard statistics unavailable")
	}

	if recent, err := app.store.Query(ctx, 10, time.Time{}); err == nil {
		d.RecentReports = recent
	} else {
		app.log.Warn().Err(err).Msg("dashboard recent reports unavailable")
	}

	if analysis, err := app.analyzer.Analyze(ctx); err == nil {
		d.Analysis = analysis
	} else {
		app.log.Warn().Err(err).Msg("dashboard analysis unavailable")
	}

	history := app.alerter.History()
	if len(history) > 10 {
		history = history[:10]
	}
	d.RecentAlerts = history

	return d
}

// SimulateCrash injects a synthetic crash of the given type into the full
// pipeline: persistence, alerting, and subscriptions all see it.
func (app *App) SimulateCrash(t report.CrashType) (*report.CrashReport, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown crash type %q", t)
	}
	return app.detector.Simulate(t), nil
}

// exportDocument is the on-disk export format: the dashboard snapshot plus
// the system state at export time.
type exportDocument struct {
	ExportedAt time.Time           `json:"exportedAt"`
	Version    string              `json:"version"`
	System     exportSystemInfo    `json:"system"`
	Dashboard  *handlers.Dashboard `json:"dashboard"`
}

type exportSystemInfo struct {
	Environment map[string]string           `json:"environment"`
	Memory      *report.MemorySnapshot      `json:"memory,omitempty"`
	Performance *report.PerformanceSnapshot `json:"performance,omitempty"`
}

// ExportReport writes a timestamped dashboard snapshot to the export
// directory and returns its path.
func (app *App) ExportReport(ctx context.Context) (string, error) {
	dash := app.BuildDashboard(ctx)

	dir := app.exportDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	name := fmt.Sprintf("faultline-%s.json", dash.GeneratedAt.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	cfg := app.currentConfig()
	doc := exportDocument{
		ExportedAt: dash.GeneratedAt,
		Version:    app.version,
		System: exportSystemInfo{
			Environment: app.collector.Environment(cfg.Detection.AppVersion, cfg.Detection.BuildNumber),
			Memory:      app.collector.MemorySnapshot(),
			Performance: app.collector.PerformanceSnapshot(),
		},
		Dashboard: dash,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}

	app.log.Info().Str("path", path).Msg("dashboard exported")
	return path, nil
}

// ClearAllData wipes stored reports and alert history.
func (app *App) ClearAllData(ctx context.Context) error {
	if err := app.store.ClearAll(ctx); err != nil {
		return err
	}
	app.alerter.ClearHistory()
	app.log.Info().Msg("all crash data cleared")
	return nil
}

func (app *App) exportDir() string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config.Export.Dir
}

func (app *App) currentConfig() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// applyConfig pushes a reloaded configuration into the running components.
// Storage and server settings need a restart; everything else applies live.
func (app *App) applyConfig(cfg *config.Config) {
	if err := config.NewValidator().Validate(cfg); err != nil {
		app.log.Error().Err(err).Msg("reloaded config rejected")
		return
	}

	app.mu.Lock()
	app.config = cfg
	app.mu.Unlock()

	app.analyzer.Configure(analysisConfig(cfg))
	app.alerter.Configure(alertConfig(cfg))
	app.webhook.SetURL(cfg.Alerts.WebhookURL)
	app.webhook.SetEnabled(cfg.Alerts.WebhookActive())

	app.log.Info().Msg("runtime configuration applied")
}

// maintenanceLoop runs retention cleanup hourly and storage optimization
// daily.
func (app *App) maintenanceLoop(ctx context.Context) {
	defer app.maintWG.Done()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()
	optimize := time.NewTicker(24 * time.Hour)
	defer optimize.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if err := app.store.Cleanup(ctx); err != nil {
				app.log.Warn().Err(err).Msg("report retention cleanup failed")
			}
		case <-optimize.C:
			if err := app.store.Optimize(ctx); err != nil {
				app.log.Warn().Err(err).Msg("storage optimization failed")
			}
		}
	}
}

// alertBridge adapts the alerter for the detector and publishes alert
// events after successful dispatch.
type alertBridge struct {
	app *App
}

func (b *alertBridge) ShouldAlert(r *report.CrashReport) bool {
	return b.app.alerter.ShouldAlert(r)
}

func (b *alertBridge) SendAlert(ctx context.Context, r *report.CrashReport) error {
	if err := b.app.alerter.SendAlert(ctx, r); err != nil {
		return err
	}
	if hist := b.app.alerter.History(); len(hist) > 0 {
		b.app.publish(handlers.Event{Kind: "alert", Timestamp: time.Now(), Alert: hist[0]})
	}
	return nil
}

func detectConfig(cfg *config.Config) detect.Config {
	return detect.Config{
		AppVersion:   cfg.Detection.AppVersion,
		BuildNumber:  cfg.Detection.BuildNumber,
		UserID:       cfg.Detection.UserID,
		HangTimeout:  config.ParseDuration(cfg.Detection.HangTimeout, 10*time.Second),
		HealthCheck:  config.ParseDuration(cfg.Detection.HealthInterval, 30*time.Second),
		MemThreshold: cfg.Detection.MemoryThreshold,
		QueueSize:    cfg.Detection.QueueSize,
	}
}

func analysisConfig(cfg *config.Config) analyze.Config {
	return analyze.Config{
		Window:           config.ParseDuration(cfg.Analysis.Window, 7*24*time.Hour),
		MaxReports:       cfg.Analysis.MaxReports,
		CacheTTL:         config.ParseDuration(cfg.Analysis.CacheTTL, 5*time.Minute),
		PatternThreshold: cfg.Analysis.PatternThreshold,
		TotalSessions:    cfg.Analysis.TotalSessions,
	}
}

func alertConfig(cfg *config.Config) alert.Config {
	thresholds := make(map[report.Severity]int, len(cfg.Alerts.Thresholds))
	for name, n := range cfg.Alerts.Thresholds {
		thresholds[report.ParseSeverity(name)] = n
	}

	var enabled map[report.AlertType]bool
	if len(cfg.Alerts.EnabledTypes) > 0 {
		enabled = make(map[report.AlertType]bool, len(cfg.Alerts.EnabledTypes))
		for _, t := range cfg.Alerts.EnabledTypes {
			enabled[report.AlertType(t)] = true
		}
	}

	return alert.Config{
		EnabledTypes:    enabled,
		Thresholds:      thresholds,
		WebhookURL:      cfg.Alerts.WebhookURL,
		HistoryLimit:    cfg.Alerts.HistoryLimit,
		RateLimitWindow: config.ParseDuration(cfg.Alerts.RateLimit.Window, 5*time.Minute),
		RateLimitMax:    cfg.Alerts.RateLimit.Max,
		ChannelTimeout:  config.ParseDuration(cfg.Alerts.ChannelTimeout, 10*time.Second),
	}
}
