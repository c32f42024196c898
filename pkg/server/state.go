package server

// State is where a connection is in its request/response cycle.
type State uint8

const (
	StateAccepted State = iota
	StateReading
	StateHeadersComplete
	StateDispatching
	StateResponding
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateAccepted:        "accepted",
	StateReading:         "reading",
	StateHeadersComplete: "headers_complete",
	StateDispatching:     "dispatching",
	StateResponding:      "responding",
	StateClosing:         "closing",
	StateClosed:          "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
