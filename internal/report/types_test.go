// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.True(t, SeverityLow < SeverityMedium)
	assert.True(t, SeverityMedium < SeverityHigh)
	assert.True(t, SeverityHigh < SeverityCritical)
}

func TestSeverity_RoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		assert.Equal(t, s, ParseSeverity(s.String()))
		assert.True(t, s.Valid())
	}
	assert.Equal(t, SeverityLow, ParseSeverity("bogus"))
	assert.False(t, Severity(0).Valid())
	assert.False(t, Severity(5).Valid())
}

func TestAlertTypeFor_Deterministic(t *testing.T) {
	tests := []struct {
		crash CrashType
		want  AlertType
	}{
		{TypeMemoryLeak, AlertMemory},
		{TypeUncaughtException, AlertCrash},
		{TypeFatalSignal, AlertCrash},
		{TypeHang, AlertPerformance},
		{TypeUIUnresponsive, AlertPerformance},
		{TypeNetworkFailure, AlertNetwork},
		{TypeDataCorruption, AlertData},
		{TypeAuthFailure, AlertSecurity},
		{TypeUnknown, AlertCrash},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlertTypeFor(tt.crash), "crash type %s", tt.crash)
	}
}

func TestBreadcrumbTrail_Bounded(t *testing.T) {
	trail := NewBreadcrumbTrail(5)

	for i := 0; i < 12; i++ {
		trail.Add(fmt.Sprintf("crumb-%d", i))
	}

	assert.Equal(t, 5, trail.Size())
	assert.Equal(t, 5, trail.MaxSize())

	crumbs := trail.Snapshot()
	assert.Len(t, crumbs, 5)

	// Most recent first.
	assert.Equal(t, "crumb-11", crumbs[0].Message)
	assert.Equal(t, "crumb-7", crumbs[4].Message)
}

func TestBreadcrumbTrail_Empty(t *testing.T) {
	trail := NewBreadcrumbTrail(0)
	assert.Equal(t, DefaultBreadcrumbCapacity, trail.MaxSize())
	assert.Nil(t, trail.Snapshot())
}

func TestBreadcrumbTrail_Clear(t *testing.T) {
	trail := NewBreadcrumbTrail(10)
	trail.Add("one")
	trail.Add("two")
	trail.Clear()
	assert.Equal(t, 0, trail.Size())
	assert.Nil(t, trail.Snapshot())
}

func TestBreadcrumbTrail_Concurrent(t *testing.T) {
	trail := NewBreadcrumbTrail(50)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			for i := 0; i < 100; i++ {
				trail.Add(fmt.Sprintf("g%d-%d", g, i))
			}
			done <- struct{}{}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	assert.Equal(t, 50, trail.Size())
}
