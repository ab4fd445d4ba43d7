// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/faultline/internal/config"
	"github.com/wingedpig/faultline/internal/report"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "faultline.hjson")
	body := fmt.Sprintf(`{
  server: { port: 7711 }
  logging: { level: "error", format: "json" }
  storage: { path: %q }
  export: { dir: %q }
}`, filepath.Join(dir, "reports.db"), filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	app, err := New(Options{ConfigPath: writeTestConfig(t, t.TempDir()), Version: "test"})
	require.NoError(t, err)
	require.NoError(t, app.Initialize(context.Background()))
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func seedReports(t *testing.T, app *App, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, app.store.Save(context.Background(), &report.CrashReport{
			ID:        fmt.Sprintf("seed-%d-%d", age, i),
			Timestamp: time.Now().UTC().Add(-age),
			Type:      report.TypeHang,
			Severity:  report.SeverityHigh,
			Message:   "seeded crash",
			Environment: map[string]string{
				report.EnvAppVersion: "1.0.0",
			},
			SessionID: fmt.Sprintf("session-%d", i),
		}))
	}
}

func TestNew_Overrides(t *testing.T) {
	app, err := New(Options{Host: "0.0.0.0", Port: 9123, Debug: true})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", app.config.Server.Host)
	assert.Equal(t, 9123, app.config.Server.Port)
	assert.Equal(t, "debug", app.config.Logging.Level)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faultline.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{ server: { port: -4 } }`), 0o644))

	_, err := New(Options{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestHealthScore(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	assert.Equal(t, 100, app.HealthScore(ctx))

	seedReports(t, app, 3, time.Minute)
	assert.Equal(t, 70, app.HealthScore(ctx))

	// Old crashes do not count against the current hour.
	seedReports(t, app, 2, 2*time.Hour)
	assert.Equal(t, 70, app.HealthScore(ctx))

	seedReports(t, app, 11, 2*time.Minute)
	assert.Equal(t, 0, app.HealthScore(ctx))
}

func TestBuildDashboard(t *testing.T) {
	app := newTestApp(t)
	seedReports(t, app, 2, time.Minute)

	d := app.BuildDashboard(context.Background())
	require.NotNil(t, d)
	assert.False(t, d.Monitoring)
	assert.Equal(t, app.detector.SessionID(), d.SessionID)
	assert.Equal(t, 2, d.Statistics.Total)
	assert.Len(t, d.RecentReports, 2)
	assert.Empty(t, d.RecentAlerts)
	require.NotNil(t, d.Analysis)
	assert.Equal(t, 2, d.Analysis.Metrics.TotalReports)
}

func TestSimulateCrash_FullPipeline(t *testing.T) {
	app := newTestApp(t)
	app.detector.StartMonitoring()

	events, cancel := app.Subscribe()
	defer cancel()

	rep, err := app.SimulateCrash(report.TypeDataCorruption)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, report.SeverityCritical, rep.Severity)

	waitFor(t, func() bool {
		_, err := app.store.Get(context.Background(), rep.ID)
		return err == nil
	})

	kinds := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(kinds) < 2 {
		select {
		case ev := <-events:
			kinds[ev.Kind] = true
		case <-timeout:
			t.Fatalf("missing events, got %v", kinds)
		}
	}
	assert.True(t, kinds["report"])
	assert.True(t, kinds["alert"])

	history := app.alerter.History()
	require.NotEmpty(t, history)
	assert.Equal(t, rep.ID, history[0].ReportID)
}

func TestSimulateCrash_UnknownType(t *testing.T) {
	app := newTestApp(t)

	_, err := app.SimulateCrash(report.CrashType("gremlins"))
	require.Error(t, err)
}

func TestExportReport(t *testing.T) {
	app := newTestApp(t)
	seedReports(t, app, 1, time.Minute)

	path, err := app.ExportReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, app.config.Export.Dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc exportDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.False(t, doc.ExportedAt.IsZero())
	assert.NotEmpty(t, doc.System.Environment)
	require.NotNil(t, doc.Dashboard)
	assert.Equal(t, 1, doc.Dashboard.Statistics.Total)
}

func TestClearAllData(t *testing.T) {
	app := newTestApp(t)
	seedReports(t, app, 3, time.Minute)

	require.NoError(t, app.ClearAllData(context.Background()))

	stats, err := app.store.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, app.alerter.History())
}

func TestSubscribeCancel(t *testing.T) {
	app := newTestApp(t)

	events, cancel := app.Subscribe()
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Cancelling twice is harmless.
	cancel()
}

func TestApplyConfig(t *testing.T) {
	app := newTestApp(t)

	cfg := config.Default()
	cfg.Alerts.WebhookURL = "http://127.0.0.1:9/hook"
	cfg.Analysis.PatternThreshold = 7
	app.applyConfig(cfg)

	assert.Same(t, cfg, app.config)
}

func TestApplyConfig_WebhookReload(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	crash := &report.CrashReport{
		ID:        "reload-1",
		Timestamp: time.Now().UTC(),
		Type:      report.TypeFatalSignal,
		Severity:  report.SeverityCritical,
		Message:   "segfault",
		SessionID: "session-reload",
	}

	// Startup config has no webhook URL: dispatch succeeds, nothing posted.
	require.NoError(t, app.alerter.SendAlert(ctx, crash))
	assert.Equal(t, int32(0), hits.Load())

	// Enabling the webhook by reload must take effect without a restart.
	enabled := config.Default()
	enabled.Alerts.WebhookURL = srv.URL
	app.applyConfig(enabled)

	require.NoError(t, app.alerter.SendAlert(ctx, crash))
	assert.Equal(t, int32(1), hits.Load())

	// Clearing the URL by reload disables delivery without failing sends.
	disabled := config.Default()
	app.applyConfig(disabled)

	require.NoError(t, app.alerter.SendAlert(ctx, crash))
	assert.Equal(t, int32(1), hits.Load())
}

func TestApplyConfig_RejectsInvalid(t *testing.T) {
	app := newTestApp(t)
	before := app.config

	bad := config.Default()
	bad.Logging.Level = "screaming"
	app.applyConfig(bad)

	assert.Same(t, before, app.config)
}

func TestShutdown_Idempotent(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.Shutdown(context.Background()))
	require.NoError(t, app.Shutdown(context.Background()))

	select {
	case <-app.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
