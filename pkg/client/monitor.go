// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// MonitorClient provides access to detector control and the host
// integration points.
type MonitorClient struct {
	c *Client
}

// Status returns the detector's current state.
func (c *MonitorClient) Status(ctx context.Context) (*Status, error) {
	data, err := c.c.get(ctx, "/api/v1/status")
	if err != nil {
		return nil, err
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	return &status, nil
}

// Start activates crash monitoring.
func (c *MonitorClient) Start(ctx context.Context) error {
	_, err := c.c.post(ctx, "/api/v1/monitoring/start")
	return err
}

// Stop deactivates crash monitoring.
func (c *MonitorClient) Stop(ctx context.Context) error {
	_, err := c.c.post(ctx, "/api/v1/monitoring/stop")
	return err
}

// Heartbeat refreshes the hang detector's liveness timestamp. Host
// applications call this periodically from their main loop; missing it for
// longer than the configured hang timeout produces a hang report.
func (c *MonitorClient) Heartbeat(ctx context.Context) error {
	_, err := c.c.post(ctx, "/api/v1/heartbeat")
	return err
}

// AddBreadcrumb records a diagnostic breadcrumb that will be attached to
// subsequent crash reports.
func (c *MonitorClient) AddBreadcrumb(ctx context.Context, message string) error {
	_, err := c.c.postJSON(ctx, "/api/v1/breadcrumbs", map[string]string{
		"message": message,
	})
	return err
}

// Breadcrumbs returns the recorded breadcrumbs, most recent first.
func (c *MonitorClient) Breadcrumbs(ctx context.Context) ([]Breadcrumb, error) {
	data, err := c.c.get(ctx, "/api/v1/breadcrumbs")
	if err != nil {
		return nil, err
	}

	var crumbs []Breadcrumb
	if err := json.Unmarshal(data, &crumbs); err != nil {
		return nil, fmt.Errorf("failed to parse breadcrumbs: %w", err)
	}

	return crumbs, nil
}
