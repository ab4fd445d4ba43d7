// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package analyze

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wingedpig/faultline/internal/report"
)

var (
	hexAddrRe = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	offsetRe  = regexp.MustCompile(`\+\d+`)
	numberRe  = regexp.MustCompile(`\b\d+\b`)
)

// normalizeFrame strips the varying parts of a stack frame (addresses,
// offsets) so frames from the same code path compare equal across runs.
func normalizeFrame(frame string) string {
	frame = hexAddrRe.ReplaceAllString(frame, "0xADDR")
	frame = offsetRe.ReplaceAllString(frame, "+N")
	return strings.TrimSpace(frame)
}

// stackSignature builds a stable identity for a crash site from the first
// five stack frames.
func stackSignature(r *report.CrashReport) string {
	n := len(r.StackTrace)
	if n == 0 {
		return ""
	}
	if n > 5 {
		n = 5
	}
	frames := make([]string, 0, n)
	for _, f := range r.StackTrace[:n] {
		frames = append(frames, normalizeFrame(f))
	}
	return strings.Join(frames, " | ")
}

// normalizeMessage collapses variable parts of an error message (addresses,
// counts, ids) into placeholders.
func normalizeMessage(msg string) string {
	msg = hexAddrRe.ReplaceAllString(msg, "0xADDR")
	msg = numberRe.ReplaceAllString(msg, "N")
	return strings.TrimSpace(msg)
}

// group accumulates the reports matching one candidate pattern.
type group struct {
	kind        string
	description string
	reports     []*report.CrashReport
}

func (g *group) toPattern() Pattern {
	p := Pattern{
		Kind:        g.kind,
		Description: g.description,
		Frequency:   len(g.reports),
		FirstSeen:   g.reports[0].Timestamp,
		LastSeen:    g.reports[0].Timestamp,
		Action:      patternActions[g.kind],
	}
	versions := make(map[string]bool)
	for _, r := range g.reports {
		if r.Timestamp.Before(p.FirstSeen) {
			p.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(p.LastSeen) {
			p.LastSeen = r.Timestamp
		}
		if v := r.AppVersion(); v != "" {
			versions[v] = true
		}
		p.ReportIDs = append(p.ReportIDs, r.ID)
	}
	for v := range versions {
		p.Versions = append(p.Versions, v)
	}
	sort.Strings(p.Versions)
	return p
}

var patternActions = map[string]string{
	"stack":       "Inspect the shared call path; the same frames fail repeatedly",
	"message":     "Search the codebase for this error message and harden the failing operation",
	"temporal":    "Correlate the peak hour with scheduled jobs or traffic patterns",
	"version":     "Audit the changes shipped in the affected version",
	"environment": "Test against the affected OS version and check platform-specific code",
}

// detectPatterns runs all five pattern families over the report set and
// returns those that cross the occurrence threshold, most frequent first.
// The computation is pure: the same report set always yields the same
// patterns.
func (a *Analyzer) detectPatterns(reports []*report.CrashReport) []Pattern {
	if len(reports) == 0 {
		return nil
	}
	threshold := a.cfg.PatternThreshold

	groups := make(map[string]*group)
	add := func(kind, key, description string, r *report.CrashReport) {
		if key == "" {
			return
		}
		id := kind + "\x00" + key
		g, ok := groups[id]
		if !ok {
			g = &group{kind: kind, description: description}
			groups[id] = g
		}
		g.reports = append(g.reports, r)
	}

	hourCounts := make(map[int][]*report.CrashReport)
	for _, r := range reports {
		if sig := stackSignature(r); sig != "" {
			add("stack", sig, fmt.Sprintf("recurring crash site: %s", firstFrame(sig)), r)
		}
		if msg := normalizeMessage(r.Message); msg != "" {
			add("message", msg, fmt.Sprintf("recurring error: %s", msg), r)
		}
		if v := r.AppVersion(); v != "" {
			add("version", v, fmt.Sprintf("crashes concentrated in version %s", v), r)
		}
		if osv := r.OSVersion(); osv != "" {
			add("environment", osv, fmt.Sprintf("crashes concentrated on %s", osv), r)
		}
		h := r.Timestamp.Hour()
		hourCounts[h] = append(hourCounts[h], r)
	}

	total := len(reports)
	var out []Pattern
	for _, g := range groups {
		if len(g.reports) < threshold {
			continue
		}
		switch g.kind {
		case "version":
			// Only notable when the version carries an outsized share.
			if float64(len(g.reports)) <= 0.30*float64(total) {
				continue
			}
		case "environment":
			if float64(len(g.reports)) <= 0.25*float64(total) {
				continue
			}
		}
		out = append(out, g.toPattern())
	}

	// Temporal clustering: an hour bucket well above the uniform share.
	uniform := float64(total) / 24.0
	for hour, rs := range hourCounts {
		if len(rs) >= threshold && float64(len(rs)) > 1.5*uniform {
			g := &group{
				kind:        "temporal",
				description: fmt.Sprintf("crashes cluster around %02d:00", hour),
				reports:     rs,
			}
			out = append(out, g.toPattern())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Description < out[j].Description
	})
	return out
}

func firstFrame(signature string) string {
	if i := strings.Index(signature, " | "); i >= 0 {
		return signature[:i]
	}
	return signature
}
