// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// AnalysisClient provides access to pattern detection and stability metrics.
type AnalysisClient struct {
	c *Client
}

// Get runs (or returns the cached) crash analysis for the configured window.
func (c *AnalysisClient) Get(ctx context.Context) (*Analysis, error) {
	data, err := c.c.get(ctx, "/api/v1/analysis")
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	return &analysis, nil
}

// Metrics returns just the stability metrics without patterns or insights.
func (c *AnalysisClient) Metrics(ctx context.Context) (*Metrics, error) {
	data, err := c.c.get(ctx, "/api/v1/analysis/metrics")
	if err != nil {
		return nil, err
	}

	var metrics Metrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}

	return &metrics, nil
}
