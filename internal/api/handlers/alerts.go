// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wingedpig/faultline/internal/alert"
)

// AlertsHandler serves alert history and snooze control.
type AlertsHandler struct {
	alerter *alert.Alerter
}

// NewAlertsHandler creates an alerts handler.
func NewAlertsHandler(a *alert.Alerter) *AlertsHandler {
	return &AlertsHandler{alerter: a}
}

// History returns emitted alerts, most recent first.
func (h *AlertsHandler) History(w http.ResponseWriter, r *http.Request) {
	hist := h.alerter.History()
	if hist == nil {
		hist = []*alert.CrashAlert{}
	}
	WriteJSON(w, http.StatusOK, hist)
}

// Stats returns per-severity alert counts over the rolling 24 hours.
func (h *AlertsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.alerter.Stats())
}

type snoozeRequest struct {
	Duration string `json:"duration"` // Go duration string, e.g. "30m"
}

// Snooze suppresses alerting for the requested duration.
func (h *AlertsHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON body")
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil || d <= 0 {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "duration must be a positive Go duration")
		return
	}

	h.alerter.Snooze(d)
	WriteJSON(w, http.StatusOK, map[string]bool{"snoozed": true})
}

// Unsnooze re-enables alerting immediately.
func (h *AlertsHandler) Unsnooze(w http.ResponseWriter, r *http.Request) {
	h.alerter.Unsnooze()
	WriteJSON(w, http.StatusOK, map[string]bool{"snoozed": false})
}

// ClearHistory drops recorded alerts.
func (h *AlertsHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.alerter.ClearHistory()
	WriteJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
