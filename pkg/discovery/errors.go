package discovery

import "errors"

var (
	// ErrClosed is returned by an Advertiser after Close.
	ErrClosed = errors.New("discovery: closed")

	// ErrAlreadyStarted is returned when a service type is already advertised.
	ErrAlreadyStarted = errors.New("discovery: already advertising")

	// ErrNotStarted is returned when stopping a service type that is not advertised.
	ErrNotStarted = errors.New("discovery: not advertising")

	ErrInvalidServiceType  = errors.New("discovery: invalid service type")
	ErrInvalidInstanceName = errors.New("discovery: invalid instance name")
	ErrInvalidPort         = errors.New("discovery: port out of range")

	// ErrServiceNotFound is returned when a lookup ends without an answer.
	ErrServiceNotFound = errors.New("discovery: service not found")

	// ErrTimeout is returned when a lookup timeout expires.
	ErrTimeout = errors.New("discovery: timed out")

	// ErrNoAddress marks answers that carry no address.
	ErrNoAddress = errors.New("discovery: service has no address")
)
