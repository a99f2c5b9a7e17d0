package auth

// State is the HAP pairing message sequence number.
type State byte

const (
	StateM1 State = iota + 1
	StateM2
	StateM3
	StateM4
	StateM5
	StateM6
)

// Method is the HAP pairing method.
type Method byte

const (
	MethodPairSetup  Method = 0
	MethodPairVerify Method = 2
)

// FlagTransient requests a transient Pair-Setup that skips M5/M6.
const FlagTransient byte = 0x10

// ErrorCode is a HAP TLV8 error value.
type ErrorCode byte

const (
	ErrorUnknown        ErrorCode = 1
	ErrorAuthentication ErrorCode = 2
	ErrorBackoff        ErrorCode = 3
	ErrorMaxPeers       ErrorCode = 4
	ErrorMaxTries       ErrorCode = 5
	ErrorUnavailable    ErrorCode = 6
	ErrorBusy           ErrorCode = 7
)

// String returns the HAP description of the error.
func (c ErrorCode) String() string {
	switch c {
	case ErrorUnknown:
		return "generic error"
	case ErrorAuthentication:
		return "setup code or signature verification failed"
	case ErrorBackoff:
		return "client must retry later"
	case ErrorMaxPeers:
		return "device cannot accept any more pairings"
	case ErrorMaxTries:
		return "too many failed authentication attempts"
	case ErrorUnavailable:
		return "device is paired with another controller"
	case ErrorBusy:
		return "device is busy with another pairing"
	default:
		return "unknown error"
	}
}
