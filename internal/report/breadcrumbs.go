// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"sync"
	"time"
)

// Breadcrumb is a short timestamped diagnostic string recorded in the
// run-up to a crash.
type Breadcrumb struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// BreadcrumbTrail is a thread-safe ring buffer of breadcrumbs. Once the
// capacity is reached the oldest entry is overwritten.
type BreadcrumbTrail struct {
	mu      sync.RWMutex
	entries []Breadcrumb
	head    int // Next write position
	size    int // Current number of entries
	maxSize int // Maximum capacity
}

// DefaultBreadcrumbCapacity bounds the trail when no capacity is given.
const DefaultBreadcrumbCapacity = 100

// NewBreadcrumbTrail creates a breadcrumb ring buffer.
func NewBreadcrumbTrail(maxSize int) *BreadcrumbTrail {
	if maxSize <= 0 {
		maxSize = DefaultBreadcrumbCapacity
	}
	return &BreadcrumbTrail{
		entries: make([]Breadcrumb, maxSize),
		maxSize: maxSize,
	}
}

// Add appends a timestamped breadcrumb. Safe to call from any goroutine.
func (t *BreadcrumbTrail) Add(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[t.head] = Breadcrumb{Timestamp: time.Now(), Message: message}
	t.head = (t.head + 1) % t.maxSize
	if t.size < t.maxSize {
		t.size++
	}
}

// Snapshot returns the recorded breadcrumbs, most recent first.
func (t *BreadcrumbTrail) Snapshot() []Breadcrumb {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.size == 0 {
		return nil
	}

	result := make([]Breadcrumb, t.size)
	for i := 0; i < t.size; i++ {
		// Walk backwards from the newest entry (head-1).
		idx := (t.head - 1 - i + t.maxSize*2) % t.maxSize
		result[i] = t.entries[idx]
	}
	return result
}

// Size returns the current number of breadcrumbs.
func (t *BreadcrumbTrail) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// MaxSize returns the maximum capacity.
func (t *BreadcrumbTrail) MaxSize() int {
	return t.maxSize
}

// Clear removes all breadcrumbs.
func (t *BreadcrumbTrail) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.head = 0
	t.size = 0
}
