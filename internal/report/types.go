// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package report defines the crash report data model shared by the
// detection, storage, analysis, and alerting components.
package report

import "time"

const reportVersion = "1.0"

// CrashType classifies the kind of abnormal condition that produced a report.
type CrashType string

const (
	TypeMemoryLeak        CrashType = "memory_leak"
	TypeUncaughtException CrashType = "uncaught_exception"
	TypeFatalSignal       CrashType = "fatal_signal"
	TypeHang              CrashType = "hang"
	TypeNetworkFailure    CrashType = "network_failure"
	TypeUIUnresponsive    CrashType = "ui_unresponsive"
	TypeDataCorruption    CrashType = "data_corruption"
	TypeAuthFailure       CrashType = "auth_failure"
	TypeUnknown           CrashType = "unknown"
)

// Valid reports whether t is a known crash type.
func (t CrashType) Valid() bool {
	switch t {
	case TypeMemoryLeak, TypeUncaughtException, TypeFatalSignal, TypeHang,
		TypeNetworkFailure, TypeUIUnresponsive, TypeDataCorruption,
		TypeAuthFailure, TypeUnknown:
		return true
	}
	return false
}

// Severity is the ordered severity of a crash report.
// The numeric values are persisted; do not renumber.
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityMedium   Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Valid reports whether s is within the defined range.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// ParseSeverity converts a severity name back to its value.
// Unknown names map to SeverityLow.
func ParseSeverity(name string) Severity {
	switch name {
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityLow
	}
}

// AlertType is the notification category a crash report maps to.
type AlertType string

const (
	AlertCrash       AlertType = "crash"
	AlertMemory      AlertType = "memory"
	AlertPerformance AlertType = "performance"
	AlertNetwork     AlertType = "network"
	AlertData        AlertType = "data"
	AlertSecurity    AlertType = "security"
)

// AlertTypeFor maps a crash type to exactly one alert type.
// The mapping is total: unknown crash types map to AlertCrash.
func AlertTypeFor(t CrashType) AlertType {
	switch t {
	case TypeMemoryLeak:
		return AlertMemory
	case TypeHang, TypeUIUnresponsive:
		return AlertPerformance
	case TypeNetworkFailure:
		return AlertNetwork
	case TypeDataCorruption:
		return AlertData
	case TypeAuthFailure:
		return AlertSecurity
	default:
		return AlertCrash
	}
}

// MemorySnapshot is a point-in-time memory reading attached at report
// creation. Immutable after construction.
type MemorySnapshot struct {
	TotalBytes     uint64  `json:"total_bytes"`     // Total system memory
	UsedBytes      uint64  `json:"used_bytes"`      // System memory in use
	UsedPercent    float64 `json:"used_percent"`    // System memory pressure
	ProcessRSS     uint64  `json:"process_rss"`     // Resident set size of this process
	HeapAlloc      uint64  `json:"heap_alloc"`      // Go heap bytes allocated
	HeapObjects    uint64  `json:"heap_objects"`    // Live heap objects
	GCPauseTotalNs uint64  `json:"gc_pause_total"`  // Cumulative GC pause time
	NumGC          uint32  `json:"num_gc"`          // Completed GC cycles
}

// PerformanceSnapshot is a point-in-time performance reading attached at
// report creation. Immutable after construction.
type PerformanceSnapshot struct {
	Goroutines   int     `json:"goroutines"`     // Goroutine count
	LoadAvg1     float64 `json:"load_avg_1"`     // 1-minute load average
	LoadAvg5     float64 `json:"load_avg_5"`     // 5-minute load average
	CPUPercent   float64 `json:"cpu_percent"`    // Process CPU usage
	UptimeSecs   float64 `json:"uptime_secs"`    // Process uptime
	ProcessCount int     `json:"process_count"`  // System process count
}

// CrashReport is the structured record of one abnormal process event.
// Reports are created only by the detector and are never mutated after
// construction; the store persists them as opaque units.
type CrashReport struct {
	Version     string               `json:"version"`                // Report format version
	ID          string               `json:"id"`                     // Opaque unique ID
	Timestamp   time.Time            `json:"timestamp"`              // When the event occurred
	Type        CrashType            `json:"type"`                   // Kind of abnormal condition
	Severity    Severity             `json:"severity"`               // Ordered severity
	Message     string               `json:"message"`                // Free-text error message
	StackTrace  []string             `json:"stack_trace"`            // Ordered stack frames
	Breadcrumbs []Breadcrumb         `json:"breadcrumbs"`            // Most-recent-first diagnostics
	Environment map[string]string    `json:"environment"`            // App/OS/device context
	Memory      *MemorySnapshot      `json:"memory,omitempty"`       // Optional memory reading
	Performance *PerformanceSnapshot `json:"performance,omitempty"`  // Optional performance reading
	UserID      string               `json:"user_id,omitempty"`      // Optional user identifier
	SessionID   string               `json:"session_id"`             // Stable for process lifetime
}

// Well-known environment keys populated by the detector.
const (
	EnvAppVersion  = "app_version"
	EnvBuildNumber = "build_number"
	EnvOSVersion   = "os_version"
	EnvDeviceModel = "device_model"
)

// AppVersion returns the application version recorded in the environment map.
func (r *CrashReport) AppVersion() string { return r.Environment[EnvAppVersion] }

// OSVersion returns the OS version recorded in the environment map.
func (r *CrashReport) OSVersion() string { return r.Environment[EnvOSVersion] }

// Statistics summarizes the persisted report set. Computed by the store
// with aggregate queries.
type Statistics struct {
	Total      int               `json:"total"`       // Total persisted reports
	BySeverity map[string]int    `json:"by_severity"` // Counts per severity name
	ByType     map[string]int    `json:"by_type"`     // Counts per crash type
	Oldest     time.Time         `json:"oldest"`      // Oldest report timestamp
	Newest     time.Time         `json:"newest"`      // Newest report timestamp
}
