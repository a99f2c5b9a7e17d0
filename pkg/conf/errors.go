package conf

import "errors"

// ErrNoService is returned when a device has no service to connect to.
var ErrNoService = errors.New("no service to connect to")
