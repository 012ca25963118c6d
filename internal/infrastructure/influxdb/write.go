package influxdb

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoints writes a batch of points and waits for the server to accept it.
//
// The whole batch is sent in one request. A non-2xx response or transport
// failure is returned wrapped in ErrWriteFailed; nothing is retried here.
//
// Parameters:
//   - ctx: Context for the HTTP request
//   - points: Points to write; an empty batch is a no-op
//
// Returns:
//   - error: nil once the server has accepted every point
func (c *Client) WritePoints(ctx context.Context, points ...*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %d points to %s: %w", ErrWriteFailed, len(points), c.cfg.Bucket, err)
	}

	return nil
}
