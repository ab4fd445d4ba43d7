// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package analyze derives recurring patterns, insights, and health metrics
// from stored crash reports.
package analyze

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/report"
)

// Source provides the reports to analyze. Implemented by the report store.
type Source interface {
	Query(ctx context.Context, limit int, since time.Time) ([]*report.CrashReport, error)
}

// Config holds configuration for the analyzer.
type Config struct {
	Window           time.Duration // Analysis look-back window (default 7 days)
	MaxReports       int           // Cap on reports pulled per analysis (default 1000)
	CacheTTL         time.Duration // How long an analysis result stays fresh (default 5m)
	PatternThreshold int           // Minimum occurrences before a pattern is reported (default 3)
	TotalSessions    int           // Session count supplied by the host, for crash-free rate
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 7 * 24 * time.Hour
	}
	if c.MaxReports <= 0 {
		c.MaxReports = 1000
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.PatternThreshold <= 0 {
		c.PatternThreshold = 3
	}
}

// Pattern is a recurring grouping of crash reports.
type Pattern struct {
	Kind        string    `json:"kind"` // stack, message, temporal, version, environment
	Description string    `json:"description"`
	Frequency   int       `json:"frequency"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	Versions    []string  `json:"versions"` // Affected application versions, sorted
	Action      string    `json:"action"`   // Recommended next step
	ReportIDs   []string  `json:"reportIds"`
}

// Insight is a human-readable conclusion drawn from the report set.
type Insight struct {
	Title        string          `json:"title"`
	Detail       string          `json:"detail"`
	Severity     report.Severity `json:"severity"`
	Confidence   float64         `json:"confidence"` // 0..1
	Actionable   bool            `json:"actionable"`
	SuggestedFix string          `json:"suggestedFix,omitempty"`
}

// Metrics summarizes application stability over the analysis window.
type Metrics struct {
	TotalReports     int              `json:"totalReports"`
	CrashFreeRate    float64          `json:"crashFreeRate"` // Percent, 0..100
	MTBF             time.Duration    `json:"mtbf"`          // Mean time between failures
	MostFrequentType report.CrashType `json:"mostFrequentType"`
	StabilityScore   float64          `json:"stabilityScore"` // 0..100
}

// Analysis is the combined result of one analyzer run.
type Analysis struct {
	GeneratedAt     time.Time      `json:"generatedAt"`
	Window          time.Duration  `json:"window"`
	ByType          map[string]int `json:"byType"`
	BySeverity      map[string]int `json:"bySeverity"`
	TrendDeltas     map[string]int `json:"trendDeltas"` // Per severity: last 24h minus the 24h before
	Patterns        []Pattern      `json:"patterns"`
	Insights        []Insight      `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	Metrics         Metrics        `json:"metrics"`
}

// Analyzer runs pattern detection, insight generation, and metric
// computation over the report store, caching results between runs.
type Analyzer struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger
	src Source

	cached   *Analysis
	cachedAt time.Time
}

// New creates an analyzer over the given report source.
func New(cfg Config, log zerolog.Logger, src Source) *Analyzer {
	cfg.applyDefaults()
	return &Analyzer{
		cfg: cfg,
		log: log.With().Str("component", "analyzer").Logger(),
		src: src,
	}
}

// Configure replaces the analyzer settings and invalidates the cache, so
// the next Analyze reflects the new parameters.
func (a *Analyzer) Configure(cfg Config) {
	cfg.applyDefaults()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.cached = nil
}

// Analyze returns the current analysis, recomputing only when the cached
// result has expired.
func (a *Analyzer) Analyze(ctx context.Context) (*Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && time.Since(a.cachedAt) < a.cfg.CacheTTL {
		return a.cached, nil
	}

	since := time.Now().Add(-a.cfg.Window)
	reports, err := a.src.Query(ctx, a.cfg.MaxReports, since)
	if err != nil {
		return nil, fmt.Errorf("analyze: querying reports: %w", err)
	}

	patterns := a.detectPatterns(reports)
	insights := a.generateInsights(reports, patterns)
	result := &Analysis{
		GeneratedAt:     time.Now(),
		Window:          a.cfg.Window,
		ByType:          countByType(reports),
		BySeverity:      countBySeverity(reports),
		TrendDeltas:     trendDeltas(reports, time.Now()),
		Patterns:        patterns,
		Insights:        insights,
		Recommendations: recommendations(insights, patterns),
		Metrics:         a.computeMetrics(reports),
	}

	a.cached = result
	a.cachedAt = result.GeneratedAt
	a.log.Debug().Int("reports", len(reports)).Int("patterns", len(patterns)).
		Int("insights", len(result.Insights)).Msg("analysis recomputed")
	return result, nil
}

// Metrics returns just the stability metrics, sharing the analysis cache.
func (a *Analyzer) Metrics(ctx context.Context) (Metrics, error) {
	res, err := a.Analyze(ctx)
	if err != nil {
		return Metrics{}, err
	}
	return res.Metrics, nil
}
