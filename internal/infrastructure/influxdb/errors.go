package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrWriteFailed) {
//	    // The day stays incomplete and is retried on the next pass
//	}
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a write was rejected or could not be sent.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrNotConfigured indicates the URL or bucket is missing from config.
	ErrNotConfigured = errors.New("influxdb: url and bucket are required")
)
