// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/faultline/internal/analyze"
)

// AnalysisHandler serves crash pattern analysis.
type AnalysisHandler struct {
	analyzer *analyze.Analyzer
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(a *analyze.Analyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: a}
}

// Get returns the full analysis: patterns, insights, and metrics.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.analyzer.Analyze(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Metrics returns just the stability metrics.
func (h *AnalysisHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.analyzer.Metrics(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, m)
}
