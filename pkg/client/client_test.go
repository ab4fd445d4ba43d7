// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// apiHandler creates a handler that returns a standard API response.
func apiHandler(data interface{}, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"data": data,
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// apiErrorHandler creates a handler that returns an API error.
func apiErrorHandler(code, message string, statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		resp := map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// recordingHandler returns the given data and records the request.
func recordingHandler(data interface{}, method, path *string, body *[]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*method = r.Method
		*path = r.URL.RequestURI()
		if body != nil {
			b, _ := io.ReadAll(r.Body)
			*body = b
		}
		apiHandler(data, http.StatusOK)(w, r)
	}
}

func TestNew(t *testing.T) {
	c := New("http://localhost:7710")

	if c.BaseURL() != "http://localhost:7710" {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), "http://localhost:7710")
	}

	// Test sub-clients are initialized
	if c.Reports == nil {
		t.Error("Reports client is nil")
	}
	if c.Analysis == nil {
		t.Error("Analysis client is nil")
	}
	if c.Alerts == nil {
		t.Error("Alerts client is nil")
	}
	if c.Monitor == nil {
		t.Error("Monitor client is nil")
	}
}

func TestNewWithOptions(t *testing.T) {
	t.Run("WithTimeout", func(t *testing.T) {
		c := New("http://localhost:7710", WithTimeout(60*time.Second))
		if c.httpClient.Timeout != 60*time.Second {
			t.Errorf("timeout = %v, want 60s", c.httpClient.Timeout)
		}
	})

	t.Run("WithHTTPClient", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := New("http://localhost:7710", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not used")
		}
	})

	t.Run("trailing slash removed", func(t *testing.T) {
		c := New("http://localhost:7710/")
		if c.BaseURL() != "http://localhost:7710" {
			t.Errorf("BaseURL() = %q, want trailing slash removed", c.BaseURL())
		}
	})
}

func TestAPIError(t *testing.T) {
	err := &APIError{Code: "NOT_FOUND", Message: "report not found"}
	if err.Error() != "NOT_FOUND: report not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &APIError{Message: "just a message"}
	if err.Error() != "just a message" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestReportsList(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(recordingHandler([]*CrashReport{
		{ID: "r-1", Type: "hang", Severity: "high"},
		{ID: "r-2", Type: "fatal_signal", Severity: "critical"},
	}, &method, &path, nil))
	defer srv.Close()

	c := New(srv.URL)
	reports, err := c.Reports.List(context.Background(), ListOptions{Limit: 5, Type: "hang"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	if method != http.MethodGet {
		t.Errorf("method = %q, want GET", method)
	}
	if path != "/api/v1/reports?limit=5&type=hang" {
		t.Errorf("path = %q", path)
	}
	if len(reports) != 2 || reports[0].ID != "r-1" {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

func TestReportsGetNotFound(t *testing.T) {
	srv := httptest.NewServer(apiErrorHandler("NOT_FOUND", "report not found", http.StatusNotFound))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Reports.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", apiErr.Code)
	}
}

func TestReportsStatistics(t *testing.T) {
	srv := httptest.NewServer(apiHandler(Statistics{
		Total:      4,
		BySeverity: map[string]int{"high": 3, "critical": 1},
	}, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	stats, err := c.Reports.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics() error: %v", err)
	}
	if stats.Total != 4 || stats.BySeverity["high"] != 3 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestAnalysisGet(t *testing.T) {
	srv := httptest.NewServer(apiHandler(Analysis{
		Patterns: []Pattern{{Kind: "message", Frequency: 3}},
		Metrics:  Metrics{TotalReports: 3, StabilityScore: 80},
	}, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	analysis, err := c.Analysis.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(analysis.Patterns) != 1 || analysis.Metrics.TotalReports != 3 {
		t.Errorf("unexpected analysis: %+v", analysis)
	}
}

func TestAlertsSnooze(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(recordingHandler(map[string]bool{"snoozed": true}, &method, &path, &body))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Alerts.Snooze(context.Background(), 90*time.Minute); err != nil {
		t.Fatalf("Snooze() error: %v", err)
	}

	if method != http.MethodPost || path != "/api/v1/alerts/snooze" {
		t.Errorf("request = %s %s", method, path)
	}

	var req map[string]string
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if req["duration"] != "1h30m0s" {
		t.Errorf("duration = %q", req["duration"])
	}
}

func TestMonitorStatus(t *testing.T) {
	srv := httptest.NewServer(apiHandler(Status{
		Monitoring:  true,
		Healthy:     true,
		SessionID:   "session-1",
		HealthScore: 90,
	}, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	status, err := c.Monitor.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if !status.Monitoring || status.SessionID != "session-1" || status.HealthScore != 90 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestMonitorBreadcrumb(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(recordingHandler(map[string]bool{"ok": true}, &method, &path, &body))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Monitor.AddBreadcrumb(context.Background(), "opening settings"); err != nil {
		t.Fatalf("AddBreadcrumb() error: %v", err)
	}

	if method != http.MethodPost || path != "/api/v1/breadcrumbs" {
		t.Errorf("request = %s %s", method, path)
	}

	var req map[string]string
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("bad request body: %v", err)
	}
	if req["message"] != "opening settings" {
		t.Errorf("message = %q", req["message"])
	}
}

func TestSimulate(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(recordingHandler(CrashReport{
		ID:       "r-9",
		Type:     "memory_leak",
		Severity: "high",
	}, &method, &path, &body))
	defer srv.Close()

	c := New(srv.URL)
	rep, err := c.Simulate(context.Background(), "memory_leak")
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	if rep.ID != "r-9" || rep.Type != "memory_leak" {
		t.Errorf("unexpected report: %+v", rep)
	}
	if method != http.MethodPost || path != "/api/v1/simulate" {
		t.Errorf("request = %s %s", method, path)
	}
}

func TestHealthScore(t *testing.T) {
	srv := httptest.NewServer(apiHandler(map[string]int{"healthScore": 70}, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	score, err := c.HealthScore(context.Background())
	if err != nil {
		t.Fatalf("HealthScore() error: %v", err)
	}
	if score != 70 {
		t.Errorf("score = %d, want 70", score)
	}
}

func TestExport(t *testing.T) {
	srv := httptest.NewServer(apiHandler(map[string]string{"path": "/tmp/faultline-20260101-120000.json"}, http.StatusOK))
	defer srv.Close()

	c := New(srv.URL)
	path, err := c.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if path != "/tmp/faultline-20260101-120000.json" {
		t.Errorf("path = %q", path)
	}
}

func TestClearData(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(recordingHandler(map[string]bool{"cleared": true}, &method, &path, nil))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.ClearData(context.Background()); err != nil {
		t.Fatalf("ClearData() error: %v", err)
	}
	if method != http.MethodDelete || path != "/api/v1/data" {
		t.Errorf("request = %s %s", method, path)
	}
}

func TestNonEnvelopeResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Reports.List(context.Background(), ListOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
}
