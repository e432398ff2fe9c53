package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// requestConfig holds configuration for building a Plex request.
type requestConfig struct {
	method string
	path   string
	query  url.Values
}

// doRequest executes a Plex API request and decodes the JSON response into
// result when it is non-nil. A 404 is reported as ErrNotFound.
func (c *Client) doRequest(ctx context.Context, cfg requestConfig, result any) error {
	req, err := http.NewRequestWithContext(ctx, cfg.method, c.baseURL+cfg.path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")

	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", cfg.method, cfg.path, ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", cfg.method, cfg.path, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status: %s", cfg.method, cfg.path, resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result any) error {
	return c.doRequest(ctx, requestConfig{method: http.MethodGet, path: path, query: query}, result)
}
