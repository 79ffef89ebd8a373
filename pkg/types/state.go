package types

// State is the lifecycle state of a service wrapper.
type State int

// Service wrapper states.
//
// Transitions: Unstarted -> Starting -> Running -> Stopped, Starting -> Failed.
// Stopped and Failed wrappers may be started again.
const (
	StateUnstarted State = iota
	StateStarting
	StateRunning
	StateFailed
	StateStopped
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CanStart reports whether a wrapper in this state may be started.
func (s State) CanStart() bool {
	return s == StateUnstarted || s == StateStopped || s == StateFailed
}
