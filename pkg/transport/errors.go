package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed connection.
	ErrClosed = errors.New("transport: closed")

	// ErrProcessorsInstalled is returned when processors are installed twice.
	ErrProcessorsInstalled = errors.New("transport: processors already installed")

	// ErrNoHandler is returned when no connection handler is configured.
	ErrNoHandler = errors.New("transport: no connection handler configured")

	// ErrAlreadyStarted is returned when Start is called on a running server.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrInvalidAddress is returned when an invalid peer address is provided.
	ErrInvalidAddress = errors.New("transport: invalid address")
)

// HTTPError is returned for responses with a non-2xx status.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("transport: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}
