// Package storage talks to the durable object store that keeps original
// capture payloads for later display and marketplace use.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Config struct {
	BaseURL string
	Bucket  string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	bucket     string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		bucket:     cfg.Bucket,
	}
}

// ObjectPath builds the owner-scoped path for an uploaded original.
func ObjectPath(ownerID string, capturedAt time.Time, index int) string {
	return fmt.Sprintf("%s/%d_%d.jpg", ownerID, capturedAt.UnixMilli(), index)
}

// Upload stores a blob and returns its public URL. The caller's token is
// passed through unmodified.
func (c *Client) Upload(ctx context.Context, token, path string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage returned status %d: %s", resp.StatusCode, body)
	}

	return c.PublicURL(path), nil
}

// PublicURL is where an uploaded object can be fetched without credentials.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, path)
}
