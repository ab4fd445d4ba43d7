// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// CrashReport is one recorded abnormal process event.
type CrashReport struct {
	Version     string               `json:"version"`
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Type        string               `json:"type"`
	Severity    string               `json:"severity"`
	Message     string               `json:"message"`
	StackTrace  []string             `json:"stack_trace"`
	Breadcrumbs []Breadcrumb         `json:"breadcrumbs"`
	Environment map[string]string    `json:"environment"`
	Memory      *MemorySnapshot      `json:"memory,omitempty"`
	Performance *PerformanceSnapshot `json:"performance,omitempty"`
	UserID      string               `json:"user_id,omitempty"`
	SessionID   string               `json:"session_id"`
}

// Breadcrumb is a timestamped diagnostic message attached to reports.
type Breadcrumb struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// MemorySnapshot is a point-in-time memory reading.
type MemorySnapshot struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	UsedPercent    float64 `json:"used_percent"`
	ProcessRSS     uint64  `json:"process_rss"`
	HeapAlloc      uint64  `json:"heap_alloc"`
	HeapObjects    uint64  `json:"heap_objects"`
	GCPauseTotalNs uint64  `json:"gc_pause_total"`
	NumGC          uint32  `json:"num_gc"`
}

// PerformanceSnapshot is a point-in-time performance reading.
type PerformanceSnapshot struct {
	Goroutines   int     `json:"goroutines"`
	LoadAvg1     float64 `json:"load_avg_1"`
	LoadAvg5     float64 `json:"load_avg_5"`
	CPUPercent   float64 `json:"cpu_percent"`
	UptimeSecs   float64 `json:"uptime_secs"`
	ProcessCount int     `json:"process_count"`
}

// Statistics summarizes the persisted report set.
type Statistics struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByType     map[string]int `json:"by_type"`
	Oldest     time.Time      `json:"oldest"`
	Newest     time.Time      `json:"newest"`
}

// Pattern is a recurring crash grouping found by the analyzer.
type Pattern struct {
	Kind        string    `json:"kind"` // stack, message, temporal, version, environment
	Description string    `json:"description"`
	Frequency   int       `json:"frequency"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	Versions    []string  `json:"versions"`
	Action      string    `json:"action"`
	ReportIDs   []string  `json:"reportIds"`
}

// Insight is an analyzer finding with a confidence score.
type Insight struct {
	Title        string  `json:"title"`
	Detail       string  `json:"detail"`
	Severity     string  `json:"severity"`
	Confidence   float64 `json:"confidence"` // 0..1
	Actionable   bool    `json:"actionable"`
	SuggestedFix string  `json:"suggestedFix,omitempty"`
}

// Metrics are aggregate stability measurements.
type Metrics struct {
	TotalReports     int           `json:"totalReports"`
	CrashFreeRate    float64       `json:"crashFreeRate"` // Percent, 0..100
	MTBF             time.Duration `json:"mtbf"`
	MostFrequentType string        `json:"mostFrequentType"`
	StabilityScore   float64       `json:"stabilityScore"` // 0..100
}

// Analysis is one full analyzer run.
type Analysis struct {
	GeneratedAt     time.Time      `json:"generatedAt"`
	Window          time.Duration  `json:"window"`
	ByType          map[string]int `json:"byType"`
	BySeverity      map[string]int `json:"bySeverity"`
	TrendDeltas     map[string]int `json:"trendDeltas"`
	Patterns        []Pattern      `json:"patterns"`
	Insights        []Insight      `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	Metrics         Metrics        `json:"metrics"`
}

// Alert is one dispatched crash alert.
type Alert struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Severity  string            `json:"severity"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	ReportID  string            `json:"reportId"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Status reports the detector's current state.
type Status struct {
	Monitoring     bool   `json:"monitoring"`
	Healthy        bool   `json:"healthy"`
	SessionID      string `json:"sessionId"`
	DroppedReports uint64 `json:"droppedReports"`
	HealthScore    int    `json:"healthScore"`
}

// Dashboard is the aggregate pipeline snapshot.
type Dashboard struct {
	GeneratedAt   time.Time      `json:"generatedAt"`
	Monitoring    bool           `json:"monitoring"`
	Healthy       bool           `json:"healthy"`
	HealthScore   int            `json:"healthScore"`
	SessionID     string         `json:"sessionId"`
	Uptime        time.Duration  `json:"uptime"`
	Statistics    Statistics     `json:"statistics"`
	RecentReports []*CrashReport `json:"recentReports"`
	Analysis      *Analysis      `json:"analysis,omitempty"`
	RecentAlerts  []*Alert       `json:"recentAlerts"`
	AlertStats    map[string]int `json:"alertStats"`
}
