// Package influxdb provides the InfluxDB v2 sink for healthbridge.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, synchronous point writes, and health monitoring.
//
// # Purpose
//
// This package stores:
//   - Backfilled health metric points (one measurement per metric)
//   - Backfill telemetry (backfill_day, backfill_progress, ...)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homeassistant",
//	    Bucket: "health",
//	}
//
//	client, err := influxdb.Connect(cfg)
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
// Writes are blocking: every WritePoints call returns the server's verdict.
// Failures wrap ErrWriteFailed so callers can classify them as sink errors.
// Timestamps are sent with second precision.
package influxdb
