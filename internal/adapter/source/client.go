package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// defaultMaxBodyBytes caps a single feed download. The full NYT state series is ~3 MB.
const defaultMaxBodyBytes = 64 << 20

// Fetcher retrieves the raw body of a remote CSV feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client implements Fetcher over plain HTTP GET.
type Client struct {
	httpClient   *http.Client
	clock        clockwork.Clock
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewClient creates a feed client. Every request is bounded by timeout.
// A nil clock uses real time.
func NewClient(timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:        clock,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Fetch downloads url and returns the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, body)
	}

	// One byte past the cap tells a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("read %s: body exceeds %d bytes", url, c.maxBodyBytes)
	}

	c.logger.Debug("feed fetched", "url", url, "bytes", len(body), "duration", c.clock.Since(start))
	return body, nil
}
