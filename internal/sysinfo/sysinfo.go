// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sysinfo collects point-in-time memory and performance readings
// for crash reports, health checks, and exports.
package sysinfo

import (
	"os"
	"runtime"
	"sync"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/wingedpig/faultline/internal/report"
)

// Collector gathers system and process readings. All readings are
// best-effort: a probe failure leaves the corresponding fields zero.
type Collector struct {
	mu        sync.Mutex
	startedAt time.Time
	proc      *process.Process

	hostOnce  sync.Once
	osVersion string
	hostModel string
}

// NewCollector creates a collector for the current process.
func NewCollector() *Collector {
	c := &Collector{startedAt: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		c.proc = p
	}
	return c
}

// MemorySnapshot captures the current memory state.
func (c *Collector) MemorySnapshot() *report.MemorySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &report.MemorySnapshot{}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.TotalBytes = vm.Total
		snap.UsedBytes = vm.Used
		snap.UsedPercent = vm.UsedPercent
	}
	if c.proc != nil {
		if mi, err := c.proc.MemoryInfo(); err == nil && mi != nil {
			snap.ProcessRSS = mi.RSS
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAlloc = ms.HeapAlloc
	snap.HeapObjects = ms.HeapObjects
	snap.GCPauseTotalNs = ms.PauseTotalNs
	snap.NumGC = ms.NumGC

	return snap
}

// PerformanceSnapshot captures the current scheduling and load state.
func (c *Collector) PerformanceSnapshot() *report.PerformanceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &report.PerformanceSnapshot{
		Goroutines: runtime.NumGoroutine(),
		UptimeSecs: time.Since(c.startedAt).Seconds(),
	}

	if avg, err := load.Avg(); err == nil {
		snap.LoadAvg1 = avg.Load1
		snap.LoadAvg5 = avg.Load5
	}
	if c.proc != nil {
		if pct, err := c.proc.CPUPercent(); err == nil {
			snap.CPUPercent = pct
		}
	}
	if procs, err := ps.Processes(); err == nil {
		snap.ProcessCount = len(procs)
	}

	return snap
}

// MemoryPressure returns the system memory used percentage, or 0 if the
// reading is unavailable.
func (c *Collector) MemoryPressure() float64 {
	if vm, err := mem.VirtualMemory(); err == nil {
		return vm.UsedPercent
	}
	return 0
}

// Uptime returns how long the collector (and so the process) has been up.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startedAt)
}

// Environment returns the base environment map recorded on every report.
// appVersion and buildNumber come from the host application's configuration.
func (c *Collector) Environment(appVersion, buildNumber string) map[string]string {
	c.hostOnce.Do(func() {
		if info, err := host.Info(); err == nil {
			c.osVersion = info.Platform + " " + info.PlatformVersion
			c.hostModel = info.Hostname
		}
		if c.osVersion == "" {
			c.osVersion = runtime.GOOS
		}
	})

	return map[string]string{
		report.EnvAppVersion:  appVersion,
		report.EnvBuildNumber: buildNumber,
		report.EnvOSVersion:   c.osVersion,
		report.EnvDeviceModel: c.hostModel,
		"go_version":          runtime.Version(),
		"arch":                runtime.GOARCH,
	}
}
