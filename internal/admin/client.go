package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client notifies a running relay's admin server about configuration writes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for the admin server on localhost:port.
func NewClient(port int) *Client {
	return &Client{
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Invalidate drops the cached configuration of each channel.
func (c *Client) Invalidate(ctx context.Context, channelIDs ...string) error {
	for _, id := range channelIDs {
		if err := c.post(ctx, "/api/cache/invalidate/"+url.PathEscape(id)); err != nil {
			return err
		}
	}
	return nil
}

// Flush drops every cached channel configuration.
func (c *Client) Flush(ctx context.Context) error {
	return c.post(ctx, "/api/cache/flush")
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("admin: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("admin: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin: post %s: status %d", path, resp.StatusCode)
	}
	return nil
}
