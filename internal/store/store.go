// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store provides durable, queryable storage of crash reports on an
// embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wingedpig/faultline/internal/report"
)

// ErrNotInitialized is returned when operating on a closed or unopened store.
var ErrNotInitialized = errors.New("report store is not initialized")

// ErrNotFound is returned when no report matches the requested ID.
var ErrNotFound = errors.New("report not found")

// timestampLayout is fixed-width so lexicographic comparison in SQL matches
// chronological order. RFC3339Nano trims trailing fractional zeros, which
// makes a whole-second rendering sort after a fractional one within the same
// second ('Z' > '.').
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS crash_reports (
	id                  TEXT PRIMARY KEY,
	timestamp           TEXT NOT NULL,
	crash_type          TEXT NOT NULL,
	severity            INTEGER NOT NULL,
	app_version         TEXT NOT NULL DEFAULT '',
	build_number        TEXT NOT NULL DEFAULT '',
	os_version          TEXT NOT NULL DEFAULT '',
	device_model        TEXT NOT NULL DEFAULT '',
	error_message       TEXT NOT NULL DEFAULT '',
	stack_trace         TEXT NOT NULL DEFAULT '[]',
	breadcrumbs         TEXT NOT NULL DEFAULT '[]',
	environment         TEXT NOT NULL DEFAULT '{}',
	memory_usage        TEXT,
	performance_metrics TEXT,
	user_id             TEXT,
	session_id          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_crash_reports_timestamp   ON crash_reports(timestamp);
CREATE INDEX IF NOT EXISTS idx_crash_reports_crash_type  ON crash_reports(crash_type);
CREATE INDEX IF NOT EXISTS idx_crash_reports_severity    ON crash_reports(severity);
CREATE INDEX IF NOT EXISTS idx_crash_reports_session_id  ON crash_reports(session_id);
CREATE INDEX IF NOT EXISTS idx_crash_reports_app_version ON crash_reports(app_version);
`

const reportColumns = `id, timestamp, crash_type, severity, app_version, build_number,
	os_version, device_model, error_message, stack_trace, breadcrumbs,
	environment, memory_usage, performance_metrics, user_id, session_id`

// Config holds configuration for the SQLite store.
type Config struct {
	Path     string        // Database file path
	MaxAge   time.Duration // Max age of reports to keep (0 = no age limit)
	MaxCount int           // Max number of reports to keep (0 = no count limit)
}

// SQLiteStore is the embedded report store. A single write connection
// serializes writes and aggregate reads against each other; a pooled
// read-only connection serves queries.
type SQLiteStore struct {
	cfg    Config
	db     *sql.DB // Write connection
	readDB *sql.DB // Read-only connection

	maxRetries    int
	baseRetryWait time.Duration
}

// New opens (creating if needed) the store at cfg.Path.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrNotInitialized)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	s := &SQLiteStore{
		cfg:           cfg,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	readDB, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	if _, err := s.db.Exec(schema); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return s, nil
}

// Save persists a crash report. Nested structures are serialized to JSON
// columns; the report itself is treated as an opaque, immutable unit.
func (s *SQLiteStore) Save(ctx context.Context, r *report.CrashReport) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	stack, err := json.Marshal(r.StackTrace)
	if err != nil {
		return fmt.Errorf("serializing stack trace: %w", err)
	}
	crumbs, err := json.Marshal(r.Breadcrumbs)
	if err != nil {
		return fmt.Errorf("serializing breadcrumbs: %w", err)
	}
	env, err := json.Marshal(r.Environment)
	if err != nil {
		return fmt.Errorf("serializing environment: %w", err)
	}

	var memBlob, perfBlob sql.NullString
	if r.Memory != nil {
		b, err := json.Marshal(r.Memory)
		if err != nil {
			return fmt.Errorf("serializing memory snapshot: %w", err)
		}
		memBlob = sql.NullString{String: string(b), Valid: true}
	}
	if r.Performance != nil {
		b, err := json.Marshal(r.Performance)
		if err != nil {
			return fmt.Errorf("serializing performance snapshot: %w", err)
		}
		perfBlob = sql.NullString{String: string(b), Valid: true}
	}

	var userID sql.NullString
	if r.UserID != "" {
		userID = sql.NullString{String: r.UserID, Valid: true}
	}

	return s.retryWrite(ctx, "Save", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO crash_reports (`+reportColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID,
			r.Timestamp.UTC().Format(timestampLayout),
			string(r.Type),
			int(r.Severity),
			r.Environment[report.EnvAppVersion],
			r.Environment[report.EnvBuildNumber],
			r.Environment[report.EnvOSVersion],
			r.Environment[report.EnvDeviceModel],
			r.Message,
			string(stack),
			string(crumbs),
			string(env),
			memBlob,
			perfBlob,
			userID,
			r.SessionID,
		)
		return err
	})
}

// Query returns reports ordered newest-first. limit <= 0 means no cap;
// a zero since means no lower bound.
func (s *SQLiteStore) Query(ctx context.Context, limit int, since time.Time) ([]*report.CrashReport, error) {
	if s.readDB == nil {
		return nil, ErrNotInitialized
	}

	q := `SELECT ` + reportColumns + ` FROM crash_reports`
	var args []any
	if !since.IsZero() {
		q += ` WHERE timestamp >= ?`
		args = append(args, since.UTC().Format(timestampLayout))
	}
	q += ` ORDER BY timestamp DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.queryReports(ctx, q, args...)
}

// Get retrieves a single report by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*report.CrashReport, error) {
	if s.readDB == nil {
		return nil, ErrNotInitialized
	}

	reports, err := s.queryReports(ctx, `SELECT `+reportColumns+` FROM crash_reports WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return reports[0], nil
}

// ByType returns reports of the given crash type, newest first.
func (s *SQLiteStore) ByType(ctx context.Context, t report.CrashType) ([]*report.CrashReport, error) {
	if s.readDB == nil {
		return nil, ErrNotInitialized
	}
	return s.queryReports(ctx, `
		SELECT `+reportColumns+` FROM crash_reports
		WHERE crash_type = ? ORDER BY timestamp DESC
	`, string(t))
}

// BySeverity returns reports of the given severity, newest first.
func (s *SQLiteStore) BySeverity(ctx context.Context, sev report.Severity) ([]*report.CrashReport, error) {
	if s.readDB == nil {
		return nil, ErrNotInitialized
	}
	return s.queryReports(ctx, `
		SELECT `+reportColumns+` FROM crash_reports
		WHERE severity = ? ORDER BY timestamp DESC
	`, int(sev))
}

// Delete removes a report by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	return s.retryWrite(ctx, "Delete", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM crash_reports WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

// ClearAll deletes every stored report.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	return s.retryWrite(ctx, "ClearAll", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM crash_reports`)
		return err
	})
}

// Statistics computes aggregate counts with SQL; stored rows are never
// loaded into memory for this.
func (s *SQLiteStore) Statistics(ctx context.Context) (*report.Statistics, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	stats := &report.Statistics{
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}

	// The write connection serializes this read against in-flight writes,
	// so a half-applied save is never observed.
	var oldest, newest sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM crash_reports
	`)
	if err := row.Scan(&stats.Total, &oldest, &newest); err != nil {
		return nil, fmt.Errorf("scanning totals: %w", err)
	}
	if oldest.Valid {
		stats.Oldest, _ = time.Parse(time.RFC3339Nano, oldest.String)
	}
	if newest.Valid {
		stats.Newest, _ = time.Parse(time.RFC3339Nano, newest.String)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM crash_reports GROUP BY severity
	`)
	if err != nil {
		return nil, fmt.Errorf("querying severity histogram: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sev, count int
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, fmt.Errorf("scanning severity histogram: %w", err)
		}
		stats.BySeverity[report.Severity(sev).String()] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := s.db.QueryContext(ctx, `
		SELECT crash_type, COUNT(*) FROM crash_reports GROUP BY crash_type
	`)
	if err != nil {
		return nil, fmt.Errorf("querying type histogram: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var typ string
		var count int
		if err := typeRows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("scanning type histogram: %w", err)
		}
		stats.ByType[typ] = count
	}
	return stats, typeRows.Err()
}

// Optimize reclaims space and refreshes the query planner statistics.
// Safe to call at any time; not required for correctness.
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	for _, stmt := range []string{"VACUUM", "ANALYZE", "PRAGMA optimize"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(stmt), err)
		}
	}
	return nil
}

// Cleanup enforces the configured retention limits. Best-effort; errors are
// returned but leave the store usable.
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	if s.cfg.MaxAge > 0 {
		cutoff := time.Now().Add(-s.cfg.MaxAge).UTC().Format(timestampLayout)
		if err := s.retryWrite(ctx, "Cleanup", func() error {
			_, err := s.db.ExecContext(ctx, `DELETE FROM crash_reports WHERE timestamp < ?`, cutoff)
			return err
		}); err != nil {
			return err
		}
	}

	if s.cfg.MaxCount > 0 {
		if err := s.retryWrite(ctx, "Cleanup", func() error {
			_, err := s.db.ExecContext(ctx, `
				DELETE FROM crash_reports WHERE id NOT IN (
					SELECT id FROM crash_reports ORDER BY timestamp DESC LIMIT ?
				)
			`, s.cfg.MaxCount)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing read connection: %w", err))
		}
		s.readDB = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing write connection: %w", err))
		}
		s.db = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// queryReports runs a SELECT over reportColumns and maps rows explicitly.
func (s *SQLiteStore) queryReports(ctx context.Context, query string, args ...any) ([]*report.CrashReport, error) {
	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.CrashReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// scanReport maps one row to a CrashReport. The mapping is explicit field by
// field; the duplicated scalar columns (app_version etc.) exist only for
// indexing, the environment JSON is authoritative.
func scanReport(rows *sql.Rows) (*report.CrashReport, error) {
	var (
		r                  report.CrashReport
		timestamp          string
		crashType          string
		severity           int
		appVersion         string
		buildNumber        string
		osVersion          string
		deviceModel        string
		stack, crumbs, env string
		memBlob, perfBlob  sql.NullString
		userID             sql.NullString
	)

	if err := rows.Scan(&r.ID, &timestamp, &crashType, &severity, &appVersion,
		&buildNumber, &osVersion, &deviceModel, &r.Message, &stack, &crumbs,
		&env, &memBlob, &perfBlob, &userID, &r.SessionID); err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	r.Version = "1.0"
	r.Type = report.CrashType(crashType)
	r.Severity = report.Severity(severity)
	r.UserID = userID.String

	var err error
	if r.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(stack), &r.StackTrace); err != nil {
		return nil, fmt.Errorf("deserializing stack trace: %w", err)
	}
	if err := json.Unmarshal([]byte(crumbs), &r.Breadcrumbs); err != nil {
		return nil, fmt.Errorf("deserializing breadcrumbs: %w", err)
	}
	if err := json.Unmarshal([]byte(env), &r.Environment); err != nil {
		return nil, fmt.Errorf("deserializing environment: %w", err)
	}
	if memBlob.Valid {
		r.Memory = &report.MemorySnapshot{}
		if err := json.Unmarshal([]byte(memBlob.String), r.Memory); err != nil {
			return nil, fmt.Errorf("deserializing memory snapshot: %w", err)
		}
	}
	if perfBlob.Valid {
		r.Performance = &report.PerformanceSnapshot{}
		if err := json.Unmarshal([]byte(perfBlob.String), r.Performance); err != nil {
			return nil, fmt.Errorf("deserializing performance snapshot: %w", err)
		}
	}
	return &r, nil
}

// retryWrite executes a write with backoff on SQLITE_BUSY.
func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := fn(); err != nil {
			if isSQLiteBusy(err) {
				lastErr = err
				wait := s.baseRetryWait * time.Duration(1<<attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
					continue
				}
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

// isSQLiteBusy checks if an error is a SQLite busy/locked error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}
