// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wingedpig/faultline/internal/report"
)

// DashboardHandler serves the aggregate pipeline views and the
// coordinator-level operations.
type DashboardHandler struct {
	c Coordinator
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(c Coordinator) *DashboardHandler {
	return &DashboardHandler{c: c}
}

// Get returns the current dashboard snapshot.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.c.BuildDashboard(r.Context()))
}

// Health returns just the health score.
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]int{"healthScore": h.c.HealthScore(r.Context())})
}

// Export writes a dashboard snapshot to disk and returns its path.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	path, err := h.c.ExportReport(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"path": path})
}

type simulateRequest struct {
	Type string `json:"type"`
}

// Simulate injects a synthetic crash into the pipeline.
func (h *DashboardHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON body")
		return
	}

	rep, err := h.c.SimulateCrash(report.CrashType(req.Type))
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, rep)
}

// Clear wipes all stored reports and alert history.
func (h *DashboardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.c.ClearAllData(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
