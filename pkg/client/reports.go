// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ReportClient provides access to stored crash reports.
type ReportClient struct {
	c *Client
}

// ListOptions filters a report listing. The zero value lists everything,
// newest first. Type and Severity are exclusive filters; Type wins when
// both are set.
type ListOptions struct {
	Limit    int       // Maximum reports to return (0 = no limit)
	Since    time.Time // Only reports at or after this time
	Type     string    // Filter by crash type
	Severity string    // Filter by severity name
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if !o.Since.IsZero() {
		q.Set("since", o.Since.Format(time.RFC3339))
	}
	if o.Type != "" {
		q.Set("type", o.Type)
	}
	if o.Severity != "" {
		q.Set("severity", o.Severity)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List returns crash reports, newest first.
func (c *ReportClient) List(ctx context.Context, opts ListOptions) ([]*CrashReport, error) {
	data, err := c.c.get(ctx, "/api/v1/reports"+opts.query())
	if err != nil {
		return nil, err
	}

	var reports []*CrashReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to parse reports: %w", err)
	}

	return reports, nil
}

// Get retrieves a specific crash report by ID.
func (c *ReportClient) Get(ctx context.Context, id string) (*CrashReport, error) {
	data, err := c.c.get(ctx, "/api/v1/reports/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var rep CrashReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &rep, nil
}

// Delete removes a crash report by ID.
func (c *ReportClient) Delete(ctx context.Context, id string) error {
	_, err := c.c.delete(ctx, "/api/v1/reports/"+url.PathEscape(id))
	return err
}

// Statistics returns aggregate counts over the stored report set.
func (c *ReportClient) Statistics(ctx context.Context) (*Statistics, error) {
	data, err := c.c.get(ctx, "/api/v1/reports/statistics")
	if err != nil {
		return nil, err
	}

	var stats Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse statistics: %w", err)
	}

	return &stats, nil
}
