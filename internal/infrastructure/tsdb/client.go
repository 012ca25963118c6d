package tsdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/healthbridge/internal/infrastructure/config"
)

// Default timeouts for TSDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
)

// Client writes time-series data to VictoriaMetrics using InfluxDB line protocol.
//
// Each WritePoints call is a single HTTP POST to /write with
// newline-delimited line protocol, and returns only once VictoriaMetrics
// has answered.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	url        string
	httpClient *http.Client

	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to VictoriaMetrics.
//
// It performs the following:
//  1. Validates config (missing URL returns ErrNotConfigured)
//  2. Creates an HTTP client
//  3. Verifies connectivity via GET /health
//
// Parameters:
//   - ctx: Context for cancellation (used for health check)
//   - cfg: VictoriaMetrics configuration from healthbridge.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the URL is missing or the connection fails
func Connect(ctx context.Context, cfg config.VictoriaMetricsConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	c := &Client{
		url: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: defaultWriteTimeout,
		},
		connected: true,
	}

	// Verify connectivity
	healthCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := c.HealthCheck(healthCtx); err != nil {
		c.connected = false
		return nil, fmt.Errorf("%w: health check failed: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// Close marks the client as disconnected. Subsequent writes fail with
// ErrNotConnected.
//
// Returns:
//   - error: always nil
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.httpClient.CloseIdleConnections()

	return nil
}

// HealthCheck verifies the VictoriaMetrics connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tsdb health check: status %d", resp.StatusCode)
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
