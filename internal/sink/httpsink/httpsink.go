// Package httpsink posts batches of conversion events to an HTTP collector.
package httpsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/kakaoad/internal/domain"
)

type batchBody struct {
	Events []domain.Event `json:"events"`
}

type Client struct {
	url  string
	http *http.Client
}

// New returns a client posting to url. A zero timeout means 10s.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

func (c *Client) WriteBatch(ctx context.Context, events []domain.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	body, err := json.Marshal(batchBody{Events: events})
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("post %s: unexpected status %d", c.url, resp.StatusCode)
	}
	return int64(len(events)), nil
}
