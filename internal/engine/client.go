// internal/engine/client.go
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// DefaultTimeout applies when New is given a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client talks to the external build-order search engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new engine client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the engine is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Solve sends an export document to the engine and returns the timed
// plots it produced, one per exported build order.
func (c *Client) Solve(ctx context.Context, e export.Export) ([]core.Plot, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/solve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solve request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("solve returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var plots []core.Plot
	if err := json.NewDecoder(resp.Body).Decode(&plots); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	return plots, nil
}
