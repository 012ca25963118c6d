package backfill

import (
	"errors"

	"github.com/nerrad567/healthbridge/internal/remote"
)

var (
	// ErrInvalidRange indicates the end date precedes the start date.
	ErrInvalidRange = errors.New("backfill: invalid date range")

	// ErrInvalidOffset indicates a timezone offset not in ±HHMM form.
	ErrInvalidOffset = errors.New("backfill: invalid timezone offset")

	// ErrSinkWrite marks a day that failed because points could not be
	// written. It never counts toward network loss.
	ErrSinkWrite = errors.New("backfill: sink write failed")

	// ErrNoSink indicates a non-dry-run engine was built without a sink.
	ErrNoSink = errors.New("backfill: sink is required unless dry run")
)

// ErrorClass groups day failures for telemetry.
type ErrorClass string

// Error classes reported in backfill_error events.
const (
	ErrorClassTransport ErrorClass = "transport"
	ErrorClassProtocol  ErrorClass = "protocol"
	ErrorClassSink      ErrorClass = "sink"
	ErrorClassUnknown   ErrorClass = "unknown"
)

// Classify maps a day error onto its class.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrSinkWrite):
		return ErrorClassSink
	case errors.Is(err, remote.ErrTransport):
		return ErrorClassTransport
	case errors.Is(err, remote.ErrProtocol):
		return ErrorClassProtocol
	default:
		return ErrorClassUnknown
	}
}
