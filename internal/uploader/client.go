package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	shared "skladi/internal/shared/types"
)

// Client posts readings to the ingest endpoint of the server.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient targets baseURL + "/sensor-data". A zero timeout means none.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: baseURL + "/sensor-data",
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Send posts one {id, value} reading. Any non-2xx status is an error.
func (c *Client) Send(ctx context.Context, id, value string) error {
	body, err := json.Marshal(shared.NewReadingMessage(id, value))
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("close response body", "error", err)
		}
	}()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: status %d: %s", c.endpoint, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	c.logger.Info("reading uploaded", "id", id, "value", value, "status", resp.StatusCode)
	return nil
}
