package session

import "errors"

// Session package errors.
var (
	// ErrInvalidKey is returned when an encryption key has invalid length.
	ErrInvalidKey = errors.New("session: invalid key length")

	// ErrDecryptFailed is returned when a frame fails authentication.
	ErrDecryptFailed = errors.New("session: frame authentication failed")

	// ErrFrameTooLarge is returned when a frame header announces a length
	// above the maximum block size.
	ErrFrameTooLarge = errors.New("session: frame too large")
)
