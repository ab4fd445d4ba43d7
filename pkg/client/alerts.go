// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AlertClient provides access to alert history and alert controls.
type AlertClient struct {
	c *Client
}

// History returns dispatched alerts, newest first.
func (c *AlertClient) History(ctx context.Context) ([]*Alert, error) {
	data, err := c.c.get(ctx, "/api/v1/alerts")
	if err != nil {
		return nil, err
	}

	var alerts []*Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to parse alerts: %w", err)
	}

	return alerts, nil
}

// Stats returns alert counts per severity over the rolling 24-hour window.
func (c *AlertClient) Stats(ctx context.Context) (map[string]int, error) {
	data, err := c.c.get(ctx, "/api/v1/alerts/stats")
	if err != nil {
		return nil, err
	}

	var stats map[string]int
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse alert stats: %w", err)
	}

	return stats, nil
}

// Snooze suppresses alerting for the given duration.
func (c *AlertClient) Snooze(ctx context.Context, d time.Duration) error {
	_, err := c.c.postJSON(ctx, "/api/v1/alerts/snooze", map[string]string{
		"duration": d.String(),
	})
	return err
}

// Unsnooze resumes alerting immediately.
func (c *AlertClient) Unsnooze(ctx context.Context) error {
	_, err := c.c.post(ctx, "/api/v1/alerts/unsnooze")
	return err
}

// Clear removes all alert history.
func (c *AlertClient) Clear(ctx context.Context) error {
	_, err := c.c.delete(ctx, "/api/v1/alerts")
	return err
}
