package pairing

// State is the state of a pairing Handler.
type State uint8

const (
	StateCreated State = iota
	StateBegan
	StatePinSet
	StateFinished
	StateFailed
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateBegan:
		return "Began"
	case StatePinSet:
		return "PinSet"
	case StateFinished:
		return "Finished"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Done reports whether Finish has run, successfully or not.
func (s State) Done() bool {
	return s == StateFinished || s == StateFailed
}
