// Package tsdb provides the VictoriaMetrics sink for healthbridge.
//
// It writes to VictoriaMetrics using InfluxDB line protocol over HTTP. Lines
// are produced by the line-protocol encoder in package lineproto, so the
// same points can go to either InfluxDB or VictoriaMetrics.
//
// # Usage
//
//	cfg := config.VictoriaMetricsConfig{URL: "http://localhost:8428"}
//
//	client, err := tsdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.WritePoints(ctx, points...); err != nil {
//	    // day stays incomplete
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Writes are synchronous. A non-2xx response is returned wrapped in
// ErrWriteFailed; nothing is buffered or retried inside the client.
package tsdb
