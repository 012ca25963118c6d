package tsdb

import "errors"

// Sentinel errors for time-series database operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrWriteFailed) {
//	    // The day stays incomplete and is retried on the next pass
//	}
var (
	// ErrNotConnected indicates the client is not connected to the TSDB.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed indicates a write operation failed.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrNotConfigured indicates the VictoriaMetrics URL is missing.
	ErrNotConfigured = errors.New("tsdb: url is required")
)
