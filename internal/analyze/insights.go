// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wingedpig/faultline/internal/report"
)

// generateInsights applies the built-in heuristics to the report set.
// Insights are ordered by severity, then confidence.
func (a *Analyzer) generateInsights(reports []*report.CrashReport, patterns []Pattern) []Insight {
	if len(reports) == 0 {
		return nil
	}
	var out []Insight

	if in, ok := a.frequencyInsight(reports); ok {
		out = append(out, in)
	}
	if in, ok := a.memoryInsight(reports); ok {
		out = append(out, in)
	}
	if in, ok := a.performanceInsight(reports); ok {
		out = append(out, in)
	}
	if in, ok := a.criticalShareInsight(reports); ok {
		out = append(out, in)
	}
	if in, ok := a.versionRegressionInsight(reports); ok {
		out = append(out, in)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// frequencyInsight flags more than ten crashes in the last 24 hours.
func (a *Analyzer) frequencyInsight(reports []*report.CrashReport) (Insight, bool) {
	cutoff := time.Now().Add(-24 * time.Hour)
	recent := 0
	for _, r := range reports {
		if r.Timestamp.After(cutoff) {
			recent++
		}
	}
	if recent <= 10 {
		return Insight{}, false
	}
	return Insight{
		Title:        "High crash frequency",
		Detail:       fmt.Sprintf("%d crashes in the last 24 hours", recent),
		Severity:     report.SeverityCritical,
		Confidence:   0.9,
		Actionable:   true,
		SuggestedFix: "Triage the most recent reports and prioritize the dominant recurring pattern",
	}, true
}

var memoryTerms = []string{"memory", "alloc", "malloc", "oom", "out of memory"}

// memoryInsight flags memory-related crashes, matching both the report type
// and allocator vocabulary in the message or stack.
func (a *Analyzer) memoryInsight(reports []*report.CrashReport) (Insight, bool) {
	count := 0
	for _, r := range reports {
		if r.Type == report.TypeMemoryLeak || mentionsAny(r, memoryTerms) {
			count++
		}
	}
	if count == 0 {
		return Insight{}, false
	}
	return Insight{
		Title:        "Memory pressure issues",
		Detail:       fmt.Sprintf("%d memory-related crashes suggest a leak or unbounded growth", count),
		Severity:     report.SeverityHigh,
		Confidence:   0.8,
		Actionable:   true,
		SuggestedFix: "Profile heap growth and review recent allocation-heavy changes",
	}, true
}

var performanceTerms = []string{"timeout", "hang", "deadlock", "unresponsive"}

// performanceInsight flags hangs and UI stalls, matching both the report
// type and timeout vocabulary in the message or stack.
func (a *Analyzer) performanceInsight(reports []*report.CrashReport) (Insight, bool) {
	count := 0
	for _, r := range reports {
		if r.Type == report.TypeHang || r.Type == report.TypeUIUnresponsive || mentionsAny(r, performanceTerms) {
			count++
		}
	}
	if count == 0 {
		return Insight{}, false
	}
	return Insight{
		Title:        "Responsiveness degradation",
		Detail:       fmt.Sprintf("%d hang or unresponsiveness reports indicate blocking on the main path", count),
		Severity:     report.SeverityMedium,
		Confidence:   0.75,
		Actionable:   true,
		SuggestedFix: "Look for blocking calls on the main execution path and move I/O off it",
	}, true
}

// mentionsAny reports whether the message or any stack frame contains one
// of the given lowercase terms.
func mentionsAny(r *report.CrashReport, terms []string) bool {
	msg := strings.ToLower(r.Message)
	for _, term := range terms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	for _, frame := range r.StackTrace {
		f := strings.ToLower(frame)
		for _, term := range terms {
			if strings.Contains(f, term) {
				return true
			}
		}
	}
	return false
}

// criticalShareInsight flags a report set dominated by critical crashes.
func (a *Analyzer) criticalShareInsight(reports []*report.CrashReport) (Insight, bool) {
	critical := 0
	for _, r := range reports {
		if r.Severity == report.SeverityCritical {
			critical++
		}
	}
	share := float64(critical) / float64(len(reports))
	if share <= 0.30 {
		return Insight{}, false
	}
	return Insight{
		Title:        "High proportion of critical crashes",
		Detail:       fmt.Sprintf("%.0f%% of recent crashes are critical severity", share*100),
		Severity:     report.SeverityCritical,
		Confidence:   0.95,
		Actionable:   true,
		SuggestedFix: "Address critical-severity crashes first; they dominate the current window",
	}, true
}

// versionRegressionInsight compares the most recently seen application
// version against the one before it and flags a doubling of crash volume.
func (a *Analyzer) versionRegressionInsight(reports []*report.CrashReport) (Insight, bool) {
	type versionStat struct {
		version  string
		count    int
		lastSeen time.Time
	}
	byVersion := make(map[string]*versionStat)
	for _, r := range reports {
		v := r.AppVersion()
		if v == "" {
			continue
		}
		st, ok := byVersion[v]
		if !ok {
			st = &versionStat{version: v}
			byVersion[v] = st
		}
		st.count++
		if r.Timestamp.After(st.lastSeen) {
			st.lastSeen = r.Timestamp
		}
	}
	if len(byVersion) < 2 {
		return Insight{}, false
	}

	stats := make([]*versionStat, 0, len(byVersion))
	for _, st := range byVersion {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].lastSeen.After(stats[j].lastSeen) })

	current, previous := stats[0], stats[1]
	if current.count < a.cfg.PatternThreshold || current.count < 2*previous.count {
		return Insight{}, false
	}
	return Insight{
		Title: "Possible regression in " + current.version,
		Detail: fmt.Sprintf("version %s has %d crashes vs %d in %s",
			current.version, current.count, previous.count, previous.version),
		Severity:     report.SeverityHigh,
		Confidence:   0.85,
		Actionable:   true,
		SuggestedFix: fmt.Sprintf("Review changes between %s and %s and consider rolling back", previous.version, current.version),
	}, true
}
