package pdu

// State is the lifecycle state of an association on the acceptor side.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateOpen
	StateReleasing
	StateAborting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateNegotiating:
		return "Negotiating"
	case StateOpen:
		return "Open"
	case StateReleasing:
		return "Releasing"
	case StateAborting:
		return "Aborting"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
