// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dashboard returns the aggregate pipeline snapshot.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	data, err := c.get(ctx, "/api/v1/dashboard")
	if err != nil {
		return nil, err
	}

	var dash Dashboard
	if err := json.Unmarshal(data, &dash); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard: %w", err)
	}

	return &dash, nil
}

// HealthScore returns the 0..100 health score for the last hour.
func (c *Client) HealthScore(ctx context.Context) (int, error) {
	data, err := c.get(ctx, "/api/v1/health")
	if err != nil {
		return 0, err
	}

	var body struct {
		Score int `json:"healthScore"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("failed to parse health: %w", err)
	}

	return body.Score, nil
}

// Simulate injects a synthetic crash of the given type into the pipeline.
func (c *Client) Simulate(ctx context.Context, crashType string) (*CrashReport, error) {
	data, err := c.postJSON(ctx, "/api/v1/simulate", map[string]string{
		"type": crashType,
	})
	if err != nil {
		return nil, err
	}

	var rep CrashReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &rep, nil
}

// Export writes a dashboard snapshot on the server and returns its path.
func (c *Client) Export(ctx context.Context) (string, error) {
	data, err := c.post(ctx, "/api/v1/export")
	if err != nil {
		return "", err
	}

	var body struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("failed to parse export response: %w", err)
	}

	return body.Path, nil
}

// ClearData wipes all stored reports and alert history on the server.
func (c *Client) ClearData(ctx context.Context) error {
	_, err := c.delete(ctx, "/api/v1/data")
	return err
}
