package status

import "errors"

// Domain errors for the status package.
var (
	// ErrNoListenAddress is returned when a server is created without an address.
	ErrNoListenAddress = errors.New("status: listen address is required")

	// ErrNoSource is returned when a server is created without a report source.
	ErrNoSource = errors.New("status: report source is required")
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in responses.
const (
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeUnavailable    = "unavailable"
)
