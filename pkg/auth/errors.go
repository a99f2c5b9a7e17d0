package auth

import (
	"errors"
	"fmt"
)

// Errors returned by the key exchange engines.
var (
	ErrNotInitialized     = errors.New("auth: engine not initialized")
	ErrInvalidState       = errors.New("auth: invalid state for this operation")
	ErrNoSharedSecret     = errors.New("auth: no shared secret established")
	ErrSignatureInvalid   = errors.New("auth: device signature verification failed")
	ErrIdentifierMismatch = errors.New("auth: device identifier does not match credentials")
	ErrWrongCredentials   = errors.New("auth: credentials do not match engine")
	ErrMalformedMessage   = errors.New("auth: malformed message")
)

// DeviceError is an error code reported by the device in a TLV8 response.
type DeviceError struct {
	Code ErrorCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("auth: device error %d: %s", byte(e.Code), e.Code)
}

// CheckError returns a *DeviceError when msg carries a non-zero error code.
func CheckError(msg *Message) error {
	if msg.Error != 0 {
		return &DeviceError{Code: ErrorCode(msg.Error)}
	}
	return nil
}
