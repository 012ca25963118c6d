package tsdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/healthbridge/internal/lineproto"
)

// maxErrorBody bounds how much of a rejection body is kept in the error.
const maxErrorBody = 512

// WritePoints sends points to VictoriaMetrics and waits for the response.
//
// The batch is rendered with lineproto.Marshal (second precision) and
// posted to /write. Any status other than 200/204 is returned wrapped in
// ErrWriteFailed together with the start of the response body.
//
// Parameters:
//   - ctx: Context for the HTTP request
//   - points: Points to write; an empty batch is a no-op
//
// Returns:
//   - error: nil once VictoriaMetrics has accepted the batch
func (c *Client) WritePoints(ctx context.Context, points ...*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	body, err := lineproto.Marshal(points)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/write", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWriteFailed, resp.StatusCode, bytes.TrimSpace(detail))
	}

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
