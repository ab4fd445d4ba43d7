// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/faultline/internal/report"
	"github.com/wingedpig/faultline/internal/store"
)

// ReportsHandler serves stored crash reports.
type ReportsHandler struct {
	store *store.SQLiteStore
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(st *store.SQLiteStore) *ReportsHandler {
	return &ReportsHandler{store: st}
}

// List returns reports, newest first. Supports limit, since (RFC3339),
// type, and severity query parameters; type and severity are exclusive
// filters.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var since time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = t
	}

	var (
		reports []*report.CrashReport
		err     error
	)
	switch {
	case q.Get("type") != "":
		t := report.CrashType(q.Get("type"))
		if !t.Valid() {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "unknown crash type")
			return
		}
		reports, err = h.store.ByType(r.Context(), t)
	case q.Get("severity") != "":
		sev := report.ParseSeverity(q.Get("severity"))
		reports, err = h.store.BySeverity(r.Context(), sev)
	default:
		reports, err = h.store.Query(r.Context(), limit, since)
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, err.Error())
		return
	}

	if reports == nil {
		reports = []*report.CrashReport{}
	}
	WriteJSON(w, http.StatusOK, reports)
}

// Get returns a single report by ID.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rep, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrNotFound, "report not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, ErrStoreError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, rep)
}

// Delete removes a single report by ID.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrNotFound, "report not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, ErrStoreError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Statistics returns aggregate report counts.
func (h *ReportsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Statistics(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrStoreError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
