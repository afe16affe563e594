package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/runlight/threadview/internal/thread"
)

const defaultHTTPTimeout = 15 * time.Second

// Client fetches thread snapshots over the REST API. Snapshots are the
// authoritative hydration source; the stream only carries deltas.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// ListThreads returns metadata for all threads, newest first.
func (c *Client) ListThreads(ctx context.Context) ([]thread.Meta, error) {
	var out struct {
		Threads []thread.Meta `json:"threads"`
	}
	if err := c.getJSON(ctx, "/v1/threads", &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// GetThread fetches the full snapshot for one thread.
func (c *Client) GetThread(ctx context.Context, threadID string) (*thread.Snapshot, error) {
	var snap thread.Snapshot
	path := "/v1/threads/" + url.PathEscape(threadID)
	if err := c.getJSON(ctx, path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetHistory fetches runs older than the given run id, for backward
// pagination. Returns runs in chronological order.
func (c *Client) GetHistory(ctx context.Context, threadID, beforeRunID string, limit int) ([]thread.Run, error) {
	var out struct {
		Runs []thread.Run `json:"runs"`
	}
	path := fmt.Sprintf("/v1/threads/%s/history?before=%s&limit=%d",
		url.PathEscape(threadID), url.QueryEscape(beforeRunID), limit)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", path, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
