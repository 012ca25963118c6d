package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for device queries.
//
// Use errors.Is to classify a failure returned by Client.Query:
//
//	if errors.Is(err, remote.ErrTransport) {
//	    // device unreachable, counts toward network loss
//	}
var (
	// ErrTransport indicates the device could not be reached or the
	// connection failed mid-exchange, after all retries.
	ErrTransport = errors.New("remote: transport failure")

	// ErrProtocol indicates the device answered with an error envelope.
	ErrProtocol = errors.New("remote: device returned an error")

	// ErrMalformedResponse indicates the response was not valid JSON.
	ErrMalformedResponse = errors.New("remote: malformed response")
)

// TransportError is returned once every query attempt has failed at the
// network level (refused, timeout, reset).
type TransportError struct {
	// Addr is the device host:port.
	Addr string
	// Attempts is how many connections were tried before giving up.
	Attempts int
	// Err is the last underlying failure.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote: %s unreachable after %d attempt(s): %v", e.Addr, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport as matching so callers can use errors.Is.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ProtocolError is a well-formed error envelope from the device.
// It is never retried.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote: device error %d: %s", e.Code, e.Message)
	}
	return "remote: device error: " + e.Message
}

// Is reports ErrProtocol as matching so callers can use errors.Is.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
