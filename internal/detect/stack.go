// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package detect

import (
	"runtime"
	"strings"
)

// stackInto fills buf with the current stack trace and returns the number
// of bytes written. Thin wrapper so the capture paths share one call site.
func stackInto(buf []byte, all bool) int {
	return runtime.Stack(buf, all)
}

// captureStack returns the current goroutine's stack as frame lines.
func captureStack() []string {
	buf := make([]byte, 64<<10)
	n := runtime.Stack(buf, false)
	return splitStack(buf[:n])
}

// captureAllStacks returns every goroutine's stack as frame lines. Used for
// hang reports, where the interesting goroutine is not the reporting one.
func captureAllStacks() []string {
	buf := make([]byte, 256<<10)
	n := runtime.Stack(buf, true)
	return splitStack(buf[:n])
}

// splitStack converts raw runtime.Stack output into trimmed, non-empty
// lines for the report's stack trace field.
func splitStack(raw []byte) []string {
	lines := strings.Split(string(raw), "\n")
	frames := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		frames = append(frames, ln)
	}
	return frames
}
