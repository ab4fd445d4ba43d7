// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/faultline/internal/alert"
	"github.com/wingedpig/faultline/internal/analyze"
	"github.com/wingedpig/faultline/internal/api/handlers"
	"github.com/wingedpig/faultline/internal/detect"
	"github.com/wingedpig/faultline/internal/logger"
	"github.com/wingedpig/faultline/internal/report"
	"github.com/wingedpig/faultline/internal/store"
)

// testCoordinator wires real components without the full app container.
type testCoordinator struct {
	st       *store.SQLiteStore
	detector *detect.Detector
	alerter  *alert.Alerter
	analyzer *analyze.Analyzer
}

func (c *testCoordinator) BuildDashboard(ctx context.Context) *handlers.Dashboard {
	d := &handlers.Dashboard{
		GeneratedAt: time.Now(),
		Monitoring:  c.detector.IsMonitoring(),
		Healthy:     true,
		HealthScore: c.HealthScore(ctx),
		SessionID:   c.detector.SessionID(),
		AlertStats:  c.alerter.Stats(),
	}
	if stats, err := c.st.Statistics(ctx); err == nil {
		d.Statistics = *stats
	}
	return d
}

func (c *testCoordinator) HealthScore(ctx context.Context) int {
	reports, err := c.st.Query(ctx, 0, time.Now().Add(-time.Hour))
	if err != nil {
		return 0
	}
	score := 100 - 10*len(reports)
	if score < 0 {
		score = 0
	}
	return score
}

func (c *testCoordinator) SimulateCrash(t report.CrashType) (*report.CrashReport, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown crash type %q", t)
	}
	return c.detector.Simulate(t), nil
}

func (c *testCoordinator) ExportReport(context.Context) (string, error) {
	return "/tmp/export.json", nil
}

func (c *testCoordinator) ClearAllData(ctx context.Context) error {
	if err := c.st.ClearAll(ctx); err != nil {
		return err
	}
	c.alerter.ClearHistory()
	return nil
}

func (c *testCoordinator) Subscribe() (<-chan handlers.Event, func()) {
	ch := make(chan handlers.Event)
	return ch, func() {}
}

func (c *testCoordinator) Detector() *detect.Detector { return c.detector }

func newTestServer(t *testing.T) (*httptest.Server, *testCoordinator) {
	t.Helper()

	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "reports.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.Nop()
	c := &testCoordinator{
		st:       st,
		detector: detect.New(detect.Config{}, log, nil, detect.WithSaver(st)),
		alerter:  alert.New(alert.Config{}, log, alert.NewLogChannel(log)),
		analyzer: analyze.New(analyze.Config{}, log, st),
	}
	t.Cleanup(c.detector.StopMonitoring)

	router := NewRouter(Dependencies{
		Coordinator: c,
		Store:       st,
		Analyzer:    c.analyzer,
		Alerter:     c.alerter,
		Log:         log,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func seedReport(t *testing.T, st *store.SQLiteStore, id string, typ report.CrashType) {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), &report.CrashReport{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Type:      typ,
		Severity:  report.SeverityHigh,
		Message:   "seeded",
		Environment: map[string]string{
			report.EnvAppVersion: "1.0.0",
		},
		SessionID: "s-" + id,
	}))
}

func TestRouter_ReportsCRUD(t *testing.T) {
	srv, c := newTestServer(t)
	seedReport(t, c.st, "r-1", report.TypeHang)
	seedReport(t, c.st, "r-2", report.TypeFatalSignal)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []*report.CrashReport
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports?type=hang", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "r-1", list[0].ID)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports/r-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var single report.CrashReport
	require.NoError(t, json.Unmarshal(env.Data, &single))
	assert.Equal(t, report.TypeFatalSignal, single.Type)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/reports/r-2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports/r-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRouter_ReportsBadQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports?limit=banana", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports?type=meltdown", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_Statistics(t *testing.T) {
	srv, c := newTestServer(t)
	seedReport(t, c.st, "r-1", report.TypeHang)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports/statistics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats report.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Total)
}

func TestRouter_Analysis(t *testing.T) {
	srv, c := newTestServer(t)
	seedReport(t, c.st, "r-1", report.TypeHang)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res analyze.Analysis
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Metrics.TotalReports)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/analysis/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m analyze.Metrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 1, m.TotalReports)
}

func TestRouter_AlertsSnooze(t *testing.T) {
	srv, c := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/alerts/snooze", map[string]string{"duration": "30m"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, c.alerter.Snoozed())

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/alerts/unsnooze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, c.alerter.Snoozed())

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/alerts/snooze", map[string]string{"duration": "whenever"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_StatusAndControl(t *testing.T) {
	srv, c := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, false, status["monitoring"])
	assert.Equal(t, c.detector.SessionID(), status["sessionId"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/monitoring/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, c.detector.IsMonitoring())

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/monitoring/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, c.detector.IsMonitoring())
}

func TestRouter_Breadcrumbs(t *testing.T) {
	srv, c := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/breadcrumbs", map[string]string{"message": "checkout started"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/breadcrumbs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var crumbs []report.Breadcrumb
	require.NoError(t, json.Unmarshal(env.Data, &crumbs))
	require.Len(t, crumbs, 1)
	assert.Equal(t, "checkout started", crumbs[0].Message)
	assert.False(t, c.detector.Breadcrumbs()[0].Timestamp.IsZero())

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/breadcrumbs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_SimulateAndDashboard(t *testing.T) {
	srv, c := newTestServer(t)
	c.detector.StartMonitoring()

	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/simulate", map[string]string{"type": "memory_leak"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var rep report.CrashReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, report.TypeMemoryLeak, rep.Type)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/simulate", map[string]string{"type": "gremlins"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash handlers.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.True(t, dash.Monitoring)
}

func TestRouter_ClearData(t *testing.T) {
	srv, c := newTestServer(t)
	seedReport(t, c.st, "r-1", report.TypeHang)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/data", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	all, err := c.st.Query(context.Background(), 0, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRouter_RecoveryMiddleware(t *testing.T) {
	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "reports.db")})
	require.NoError(t, err)
	defer st.Close()

	log := logger.Nop()
	c := &testCoordinator{
		st:       st,
		detector: detect.New(detect.Config{}, log, nil),
		alerter:  alert.New(alert.Config{}, log),
		analyzer: analyze.New(analyze.Config{}, log, st),
	}

	router := NewRouter(Dependencies{
		Coordinator: c, Store: st, Analyzer: c.analyzer, Alerter: c.alerter, Log: log,
	})
	router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boom")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTLSFiles(t *testing.T) {
	cert, key, err := tlsFiles("", "")
	require.NoError(t, err)
	assert.Empty(t, cert)
	assert.Empty(t, key)

	_, _, err = tlsFiles("/etc/ssl/cert.pem", "")
	assert.Error(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0o600))

	cert, key, err = tlsFiles(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, certPath, cert)
	assert.Equal(t, keyPath, key)

	_, _, err = tlsFiles(certPath, filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)
}
