package credentials

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is matched by every token parse failure.
var ErrInvalidCredentials = errors.New("credentials: invalid credentials")

// ParseError describes why a credential token was rejected.
type ParseError struct {
	// Tag is the scheme tag found in the token, if any.
	Tag string
	// Reason is a short human readable cause.
	Reason string
}

func (e *ParseError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("credentials: invalid token: %s", e.Reason)
	}
	return fmt.Sprintf("credentials: invalid %s token: %s", e.Tag, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidCredentials) true for parse errors.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

func parseError(tag, format string, args ...any) error {
	return &ParseError{Tag: tag, Reason: fmt.Sprintf(format, args...)}
}
