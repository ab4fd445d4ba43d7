// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package analyze

import (
	"time"

	"github.com/wingedpig/faultline/internal/report"
)

func countByType(reports []*report.CrashReport) map[string]int {
	out := make(map[string]int)
	for _, r := range reports {
		out[string(r.Type)]++
	}
	return out
}

func countBySeverity(reports []*report.CrashReport) map[string]int {
	out := make(map[string]int)
	for _, r := range reports {
		out[r.Severity.String()]++
	}
	return out
}

// trendDeltas compares the last 24 hours against the 24 hours before it,
// per severity. Positive means crashes are accelerating.
func trendDeltas(reports []*report.CrashReport, now time.Time) map[string]int {
	dayAgo := now.Add(-24 * time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	out := make(map[string]int)
	for _, r := range reports {
		switch {
		case r.Timestamp.After(dayAgo):
			out[r.Severity.String()]++
		case r.Timestamp.After(twoDaysAgo):
			out[r.Severity.String()]--
		}
	}
	return out
}

// recommendations assembles free-text next steps from the actionable
// insights, with a pattern-level nudge when recurring groups exist.
func recommendations(insights []Insight, patterns []Pattern) []string {
	var out []string
	for _, in := range insights {
		if in.Actionable && in.SuggestedFix != "" {
			out = append(out, in.SuggestedFix)
		}
	}
	if len(patterns) > 0 && patterns[0].Action != "" {
		out = append(out, patterns[0].Action)
	}
	return out
}
