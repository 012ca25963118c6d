package lineproto

import (
	"bytes"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	protocol "github.com/influxdata/line-protocol"
)

// Marshal renders points as newline-delimited line protocol with
// second-precision timestamps, ready for a /write endpoint.
func Marshal(points []*write.Point) ([]byte, error) {
	var buf bytes.Buffer
	enc := protocol.NewEncoder(&buf)
	enc.SetPrecision(time.Second)
	enc.SetFieldSortOrder(protocol.SortFields)
	enc.FailOnFieldErr(true)

	for _, p := range points {
		if _, err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("encoding %s point: %w", p.Name(), err)
		}
	}
	return buf.Bytes(), nil
}
