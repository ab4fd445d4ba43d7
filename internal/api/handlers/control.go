// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
)

// ControlHandler serves detector control and host integration endpoints.
type ControlHandler struct {
	c Coordinator
}

// NewControlHandler creates a control handler.
func NewControlHandler(c Coordinator) *ControlHandler {
	return &ControlHandler{c: c}
}

// Status reports whether monitoring is active and healthy.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	d := h.c.Detector()
	WriteJSON(w, http.StatusOK, map[string]any{
		"monitoring":     d.IsMonitoring(),
		"healthy":        d.Healthy(),
		"sessionId":      d.SessionID(),
		"droppedReports": d.DroppedReports(),
		"healthScore":    h.c.HealthScore(r.Context()),
	})
}

// Start activates monitoring.
func (h *ControlHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.c.Detector().StartMonitoring()
	WriteJSON(w, http.StatusOK, map[string]bool{"monitoring": true})
}

// Stop deactivates monitoring.
func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.c.Detector().StopMonitoring()
	WriteJSON(w, http.StatusOK, map[string]bool{"monitoring": false})
}

// Heartbeat refreshes the hang detector's liveness timestamp. Host
// applications that cannot link the detector directly call this instead.
func (h *ControlHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	h.c.Detector().Heartbeat()
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type breadcrumbRequest struct {
	Message string `json:"message"`
}

// Breadcrumb records a diagnostic breadcrumb.
func (h *ControlHandler) Breadcrumb(w http.ResponseWriter, r *http.Request) {
	var req breadcrumbRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "message is required")
		return
	}
	h.c.Detector().AddBreadcrumb(req.Message)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Breadcrumbs returns the recorded breadcrumbs, most recent first.
func (h *ControlHandler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.c.Detector().Breadcrumbs())
}
