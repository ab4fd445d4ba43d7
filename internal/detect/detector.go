// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package detect intercepts abnormal process conditions (fatal signals,
// uncaught panics, main-loop hangs, memory pressure) and turns them into
// crash reports.
package detect

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/report"
	"github.com/wingedpig/faultline/internal/sysinfo"
)

// Saver persists crash reports. Implemented by the report store.
type Saver interface {
	Save(ctx context.Context, r *report.CrashReport) error
}

// Alerter evaluates and dispatches notifications for crash reports.
type Alerter interface {
	ShouldAlert(r *report.CrashReport) bool
	SendAlert(ctx context.Context, r *report.CrashReport) error
}

// Config holds configuration for the detector.
type Config struct {
	AppVersion   string        // Host application version
	BuildNumber  string        // Host application build number
	UserID       string        // Optional user identifier for reports
	HangTimeout  time.Duration // Main-loop heartbeat timeout (default 10s)
	HangCheck    time.Duration // Hang check interval (default 1s)
	HealthCheck  time.Duration // Health check interval (default 30s)
	MemThreshold float64       // Memory pressure percent considered unhealthy (default 90)
	QueueSize    int           // Report pipeline buffer (default 64)
}

func (c *Config) applyDefaults() {
	if c.HangTimeout <= 0 {
		c.HangTimeout = 10 * time.Second
	}
	if c.HangCheck <= 0 {
		c.HangCheck = time.Second
	}
	if c.HealthCheck <= 0 {
		c.HealthCheck = 30 * time.Second
	}
	if c.MemThreshold <= 0 {
		c.MemThreshold = 90
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
}

// item is one entry in the report pipeline. done, when non-nil, is closed
// after the report has been fully processed; the fatal-signal path uses it
// to flush before re-raising.
type item struct {
	r    *report.CrashReport
	done chan struct{}
}

// Detector installs process-level hooks and feeds crash reports to the
// storage and alerting components through the injected interfaces. It holds
// only capability interfaces, never concrete component types, so it runs
// with any subset wired in.
type Detector struct {
	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cfg       Config
	log       zerolog.Logger
	collector *sysinfo.Collector
	trail     *report.BreadcrumbTrail
	sessionID string

	saver   Saver
	alerter Alerter
	notify  func(*report.CrashReport) // Coordinator observer, may be nil

	queue chan item

	lastBeat     atomic.Int64 // UnixNano of last heartbeat; 0 = never beaten
	hangReported atomic.Bool
	healthy      atomic.Bool
	dropped      atomic.Uint64

	signals *signalWatcher
}

// Option configures optional detector collaborators.
type Option func(*Detector)

// WithSaver wires a report store.
func WithSaver(s Saver) Option { return func(d *Detector) { d.saver = s } }

// WithAlerter wires an alert evaluator.
func WithAlerter(a Alerter) Option { return func(d *Detector) { d.alerter = a } }

// WithObserver registers a callback invoked after each report is processed.
func WithObserver(fn func(*report.CrashReport)) Option {
	return func(d *Detector) { d.notify = fn }
}

// New creates a detector. Monitoring does not start until StartMonitoring.
func New(cfg Config, log zerolog.Logger, collector *sysinfo.Collector, opts ...Option) *Detector {
	cfg.applyDefaults()
	if collector == nil {
		collector = sysinfo.NewCollector()
	}

	d := &Detector{
		cfg:       cfg,
		log:       log.With().Str("component", "detector").Logger(),
		collector: collector,
		trail:     report.NewBreadcrumbTrail(report.DefaultBreadcrumbCapacity),
		sessionID: uuid.NewString(),
		queue:     make(chan item, cfg.QueueSize),
	}
	d.healthy.Store(true)
	for _, opt := range opts {
		opt(d)
	}
	d.signals = newSignalWatcher(d)
	return d
}

// SessionID returns the identifier shared by all reports of this process.
func (d *Detector) SessionID() string { return d.sessionID }

// StartMonitoring installs the signal hooks and starts the hang and health
// check loops. Calling it twice is a no-op.
func (d *Detector) StartMonitoring() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go d.dispatchLoop(ctx)

	if err := d.signals.install(); err != nil {
		// Degraded: panic and hang detection still run.
		d.log.Warn().Err(err).Msg("failed to install signal handlers, signal coverage disabled")
	} else {
		d.wg.Add(1)
		go d.signals.watch(ctx, &d.wg)
	}

	d.wg.Add(1)
	go d.hangLoop(ctx)

	d.wg.Add(1)
	go d.healthLoop(ctx)

	d.log.Info().Str("session_id", d.sessionID).Msg("crash monitoring started")
}

// StopMonitoring restores the previous signal disposition and cancels the
// check loops. Calling it when not started is a no-op. All background
// goroutines have exited when it returns.
func (d *Detector) StopMonitoring() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.signals.uninstall()
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info().Msg("crash monitoring stopped")
}

// IsMonitoring reports whether monitoring is active.
func (d *Detector) IsMonitoring() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Healthy reports the result of the last health check.
func (d *Detector) Healthy() bool { return d.healthy.Load() }

// AddBreadcrumb records a timestamped diagnostic string. Safe from any
// goroutine.
func (d *Detector) AddBreadcrumb(message string) {
	d.trail.Add(message)
}

// Breadcrumbs returns the recorded breadcrumbs, most recent first.
func (d *Detector) Breadcrumbs() []report.Breadcrumb {
	return d.trail.Snapshot()
}

// Heartbeat refreshes the main-loop liveness timestamp. The host
// application calls this from its main execution context on a fixed
// interval; hang detection stays dormant until the first beat.
func (d *Detector) Heartbeat() {
	d.lastBeat.Store(time.Now().UnixNano())
	d.hangReported.Store(false)
}

// ReportCrash enqueues a report for asynchronous persistence and alerting.
// It never blocks: when the pipeline is saturated the report is dropped and
// counted.
func (d *Detector) ReportCrash(r *report.CrashReport) {
	select {
	case d.queue <- item{r: r}:
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("id", r.ID).Msg("report pipeline full, dropping report")
	}
}

// DroppedReports returns how many reports were dropped due to back-pressure.
func (d *Detector) DroppedReports() uint64 { return d.dropped.Load() }

// CapturePanic builds and enqueues an uncaught-exception report from a
// recovered panic value. The caller decides whether to re-panic.
func (d *Detector) CapturePanic(recovered any) *report.CrashReport {
	buf := make([]byte, 64<<10)
	n := runtime.Stack(buf, false)

	r := d.NewReport(report.TypeUncaughtException, report.SeverityCritical,
		fmt.Sprintf("panic: %v", recovered))
	r.StackTrace = splitStack(buf[:n])
	d.ReportCrash(r)
	return r
}

// Recover is a deferred helper for background goroutines: it converts a
// panic into a crash report and swallows it so one goroutine's fault does
// not take the process down.
func (d *Detector) Recover() {
	if rec := recover(); rec != nil {
		r := d.CapturePanic(rec)
		d.log.Error().Str("id", r.ID).Interface("panic", rec).Msg("recovered panic in background goroutine")
	}
}

// NewReport constructs an immutable crash report with the current
// breadcrumbs, environment, and resource snapshots attached.
func (d *Detector) NewReport(t report.CrashType, sev report.Severity, message string) *report.CrashReport {
	return &report.CrashReport{
		Version:     "1.0",
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Type:        t,
		Severity:    sev,
		Message:     message,
		Breadcrumbs: d.trail.Snapshot(),
		Environment: d.collector.Environment(d.cfg.AppVersion, d.cfg.BuildNumber),
		Memory:      d.collector.MemorySnapshot(),
		Performance: d.collector.PerformanceSnapshot(),
		UserID:      d.cfg.UserID,
		SessionID:   d.sessionID,
	}
}

// Simulate builds and enqueues a synthetic report of the given type. Used
// by the coordinator's test/demo hook.
func (d *Detector) Simulate(t report.CrashType) *report.CrashReport {
	r := d.NewReport(t, DefaultSeverity(t), fmt.Sprintf("simulated %s crash", t))
	r.StackTrace = captureStack()
	d.ReportCrash(r)
	return r
}

// DefaultSeverity returns the severity assigned to synthesized reports of
// the given type.
func DefaultSeverity(t report.CrashType) report.Severity {
	switch t {
	case report.TypeFatalSignal, report.TypeUncaughtException, report.TypeDataCorruption:
		return report.SeverityCritical
	case report.TypeMemoryLeak, report.TypeHang, report.TypeUIUnresponsive:
		return report.SeverityHigh
	case report.TypeNetworkFailure, report.TypeAuthFailure:
		return report.SeverityMedium
	}
	return report.SeverityLow
}

// dispatchLoop drains the report pipeline: persistence first, then alert
// evaluation, then the observer. Runs on its own goroutine so producers
// never block on store or channel I/O.
func (d *Detector) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case it := <-d.queue:
					d.process(it)
				default:
					return
				}
			}
		case it := <-d.queue:
			d.process(it)
		}
	}
}

func (d *Detector) process(it item) {
	if it.done != nil {
		defer close(it.done)
	}
	r := it.r

	if d.saver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.saver.Save(ctx, r); err != nil {
			d.log.Error().Err(err).Str("id", r.ID).Msg("failed to persist crash report")
		}
		cancel()
	}

	if d.alerter != nil && d.alerter.ShouldAlert(r) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := d.alerter.SendAlert(ctx, r); err != nil {
			d.log.Error().Err(err).Str("id", r.ID).Msg("failed to dispatch alert")
		}
		cancel()
	}

	if d.notify != nil {
		d.notify(r)
	}
}

// reportAndFlush enqueues a report and waits (bounded) until it has been
// processed. Used on the fatal-signal path so the report reaches the store
// before the signal is re-raised.
func (d *Detector) reportAndFlush(r *report.CrashReport, timeout time.Duration) {
	done := make(chan struct{})
	select {
	case d.queue <- item{r: r, done: done}:
		select {
		case <-done:
		case <-time.After(timeout):
		}
	case <-time.After(timeout):
		d.dropped.Add(1)
	}
}

// hangLoop synthesizes a hang report when the heartbeat goes stale. One
// report per hang episode: the flag resets when the heartbeat resumes.
func (d *Detector) hangLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.HangCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := d.lastBeat.Load()
			if last == 0 {
				continue // Host never wired a heartbeat
			}
			stale := time.Since(time.Unix(0, last))
			if stale > d.cfg.HangTimeout && !d.hangReported.Swap(true) {
				r := d.NewReport(report.TypeHang, report.SeverityHigh,
					fmt.Sprintf("main loop unresponsive for %s (timeout %s)", stale.Round(time.Millisecond), d.cfg.HangTimeout))
				r.StackTrace = captureAllStacks()
				d.ReportCrash(r)
				d.log.Warn().Dur("stale", stale).Msg("main loop hang detected")
			}
		}
	}
}

// healthWarmup is how long after process start memory pressure is ignored.
// Startup allocation spikes should not mark a fresh process unhealthy.
const healthWarmup = time.Minute

// assessHealth decides the healthy flag from memory pressure and uptime.
func (d *Detector) assessHealth(pressure float64, uptime time.Duration) bool {
	if uptime < healthWarmup {
		return true
	}
	return pressure < d.cfg.MemThreshold
}

// healthLoop flips the healthy flag on memory pressure and uptime.
// Transitions are logged once, not on every check.
func (d *Detector) healthLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.HealthCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pressure := d.collector.MemoryPressure()
			healthy := d.assessHealth(pressure, d.collector.Uptime())
			if d.healthy.Swap(healthy) != healthy {
				if healthy {
					d.log.Info().Float64("mem_percent", pressure).Msg("process healthy again")
				} else {
					d.log.Warn().Float64("mem_percent", pressure).
						Dur("uptime", d.collector.Uptime()).Msg("process unhealthy: memory pressure")
				}
			}
		}
	}
}
