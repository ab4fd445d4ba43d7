// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package analyze

import (
	"time"

	"github.com/wingedpig/faultline/internal/report"
)

// severityPenalty weighs a crash by severity for the stability score.
// Critical counts full weight, low barely registers.
func severityPenalty(sev report.Severity) float64 {
	switch sev {
	case report.SeverityCritical:
		return 10.0 / 1
	case report.SeverityHigh:
		return 10.0 / 2
	case report.SeverityMedium:
		return 10.0 / 3
	default:
		return 10.0 / 4
	}
}

// computeMetrics derives the stability summary from the report set. An
// empty set yields the optimistic boundary: 100% crash-free, zero MTBF,
// unknown dominant type, stability 100.
func (a *Analyzer) computeMetrics(reports []*report.CrashReport) Metrics {
	m := Metrics{
		TotalReports:     len(reports),
		CrashFreeRate:    100,
		MostFrequentType: report.TypeUnknown,
		StabilityScore:   100,
	}
	if len(reports) == 0 {
		return m
	}

	// Crash-free rate compares crashed sessions against the host-supplied
	// session total. The total is clamped up so an understated count never
	// produces a rate below zero.
	crashed := make(map[string]struct{})
	for _, r := range reports {
		if r.SessionID != "" {
			crashed[r.SessionID] = struct{}{}
		}
	}
	sessions := a.cfg.TotalSessions
	if sessions < len(crashed) {
		sessions = len(crashed)
	}
	if sessions > 0 {
		m.CrashFreeRate = 100 * (1 - float64(len(crashed))/float64(sessions))
	}

	// MTBF over the observed span. A single report has no span.
	oldest, newest := reports[0].Timestamp, reports[0].Timestamp
	for _, r := range reports {
		if r.Timestamp.Before(oldest) {
			oldest = r.Timestamp
		}
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if len(reports) > 1 {
		m.MTBF = newest.Sub(oldest) / time.Duration(len(reports)-1)
	}

	typeCounts := make(map[report.CrashType]int)
	for _, r := range reports {
		typeCounts[r.Type]++
	}
	best := 0
	for t, n := range typeCounts {
		if n > best || (n == best && t < m.MostFrequentType) {
			best = n
			m.MostFrequentType = t
		}
	}

	var penalty float64
	for _, r := range reports {
		penalty += severityPenalty(r.Severity)
	}
	if penalty > 50 {
		penalty = 50
	}
	m.StabilityScore = m.CrashFreeRate - penalty
	if m.StabilityScore < 0 {
		m.StabilityScore = 0
	}
	return m
}
