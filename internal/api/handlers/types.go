// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"context"
	"time"

	"github.com/wingedpig/faultline/internal/alert"
	"github.com/wingedpig/faultline/internal/analyze"
	"github.com/wingedpig/faultline/internal/detect"
	"github.com/wingedpig/faultline/internal/report"
)

// Coordinator is the pipeline surface the API serves. Implemented by the
// app container.
type Coordinator interface {
	BuildDashboard(ctx context.Context) *Dashboard
	HealthScore(ctx context.Context) int
	SimulateCrash(t report.CrashType) (*report.CrashReport, error)
	ExportReport(ctx context.Context) (string, error)
	ClearAllData(ctx context.Context) error
	Subscribe() (<-chan Event, func())
	Detector() *detect.Detector
}

// Event is one pipeline occurrence published to subscribers.
type Event struct {
	Kind      string              `json:"kind"` // "report" or "alert"
	Timestamp time.Time           `json:"timestamp"`
	Report    *report.CrashReport `json:"report,omitempty"`
	Alert     *alert.CrashAlert   `json:"alert,omitempty"`
}

// Dashboard is a point-in-time aggregate of the whole pipeline.
type Dashboard struct {
	GeneratedAt   time.Time             `json:"generatedAt"`
	Monitoring    bool                  `json:"monitoring"`
	Healthy       bool                  `json:"healthy"`
	HealthScore   int                   `json:"healthScore"` // 0..100
	SessionID     string                `json:"sessionId"`
	Uptime        time.Duration         `json:"uptime"`
	Statistics    report.Statistics     `json:"statistics"`
	RecentReports []*report.CrashReport `json:"recentReports"`
	Analysis      *analyze.Analysis     `json:"analysis,omitempty"`
	RecentAlerts  []*alert.CrashAlert   `json:"recentAlerts"`
	AlertStats    map[string]int        `json:"alertStats"`
}
