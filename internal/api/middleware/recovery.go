// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wingedpig/faultline/internal/report"
)

// PanicSink turns a recovered handler panic into a crash report.
// Implemented by the detector.
type PanicSink interface {
	CapturePanic(recovered any) *report.CrashReport
}

// Recovery returns middleware that recovers from handler panics. Each panic
// is captured as a crash report, so API faults flow through the same
// pipeline as every other crash.
func Recovery(sink PanicSink, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					var id string
					if sink != nil {
						id = sink.CapturePanic(rec).ID
					}
					log.Error().Interface("panic", rec).Str("report_id", id).
						Str("path", r.URL.Path).Msg("panic recovered in handler")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
