package model

// ReadyState is the coarse connection state visible to callers.
type ReadyState int

const (
	Connecting ReadyState = iota
	Open
	Closed
)

func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnState is the full state of the reconnecting state machine.
// RECONNECT_WAIT is reported to callers as CONNECTING.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateReconnectWait
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnectWait:
		return "RECONNECT_WAIT"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

func (s ConnState) ReadyState() ReadyState {
	switch s {
	case StateOpen:
		return Open
	case StateClosed:
		return Closed
	default:
		return Connecting
	}
}

// FeedStats are counters kept per controller for observability.
type FeedStats struct {
	SessionID string `json:"session_id"`
	Attempts  int    `json:"attempts"`
	Messages  int64  `json:"messages"`
	Malformed int64  `json:"malformed"`
	LastError string `json:"last_error,omitempty"`
}
