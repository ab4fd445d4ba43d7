// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package alert

import "time"

// rateLimiter bounds alerts per key within a sliding window. Callers hold
// the alerter lock, so no internal locking.
type rateLimiter struct {
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{window: window, max: max, hits: make(map[string][]time.Time)}
}

// allow records an attempt for key and reports whether it fits within the
// window budget.
func (rl *rateLimiter) allow(key string, now time.Time) bool {
	cutoff := now.Add(-rl.window)
	kept := rl.hits[key][:0]
	for _, ts := range rl.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= rl.max {
		rl.hits[key] = kept
		return false
	}
	rl.hits[key] = append(kept, now)
	return true
}
