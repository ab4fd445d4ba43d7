// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package detect

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/faultline/internal/report"
)

// fatalSignals are the signals intercepted for crash capture.
var fatalSignals = []os.Signal{
	syscall.SIGSEGV,
	syscall.SIGBUS,
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGABRT,
	syscall.SIGTRAP,
}

// signalWatcher owns the signal subscription and the pre-allocated capture
// buffer. The buffer is allocated at install time so the capture path does
// not grow the heap while the process is already in a bad state.
type signalWatcher struct {
	d        *Detector
	ch       chan os.Signal
	stackBuf []byte

	// raise is overridable in tests; the default re-delivers the signal
	// to the process after the handler has been reset.
	raise func(sig syscall.Signal) error
}

func newSignalWatcher(d *Detector) *signalWatcher {
	return &signalWatcher{
		d: d,
		raise: func(sig syscall.Signal) error {
			return syscall.Kill(os.Getpid(), sig)
		},
	}
}

func (w *signalWatcher) install() error {
	w.ch = make(chan os.Signal, len(fatalSignals))
	w.stackBuf = make([]byte, 256<<10)
	signal.Notify(w.ch, fatalSignals...)
	return nil
}

func (w *signalWatcher) uninstall() {
	if w.ch != nil {
		signal.Stop(w.ch)
	}
}

// watch handles one fatal signal: capture, flush, restore the default
// disposition, re-raise. The process terminates with the correct signal
// status, so exit-status observers see the original fault.
func (w *signalWatcher) watch(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-w.ch:
			if !ok {
				return
			}
			w.handle(sig)
		}
	}
}

func (w *signalWatcher) handle(sig os.Signal) {
	d := w.d

	r := d.NewReport(report.TypeFatalSignal, report.SeverityCritical, fmt.Sprintf("fatal signal %s", sig))
	r.StackTrace = splitStack(w.captureInto())

	d.log.Error().Str("signal", sig.String()).Str("id", r.ID).Msg("fatal signal intercepted")
	d.reportAndFlush(r, 2*time.Second)

	sys, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	signal.Reset(sig)
	if err := w.raise(sys); err != nil {
		d.log.Error().Err(err).Str("signal", sig.String()).Msg("failed to re-raise signal")
	}
}

// captureInto writes all goroutine stacks into the pre-allocated buffer.
func (w *signalWatcher) captureInto() []byte {
	n := stackInto(w.stackBuf, true)
	return w.stackBuf[:n]
}
