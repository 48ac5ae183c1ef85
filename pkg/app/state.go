package app

// State is the orchestrator lifecycle state.
type State int

const (
	// StateStarting means subsystems are initializing.
	StateStarting State = iota

	// StateRunning means all features are operating.
	StateRunning

	// StateDegraded means the loop is operating with at least one
	// feature disabled.
	StateDegraded

	// StateShuttingDown means a shutdown signal was observed and
	// resources are being released.
	StateShuttingDown

	// StateStopped means all resources are released.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDegraded:
		return "degraded"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validTransition reports whether moving from to next is allowed.
func validTransition(from, next State) bool {
	switch from {
	case StateStarting:
		return next == StateRunning || next == StateDegraded || next == StateShuttingDown
	case StateRunning:
		return next == StateDegraded || next == StateShuttingDown
	case StateDegraded:
		return next == StateRunning || next == StateShuttingDown
	case StateShuttingDown:
		return next == StateStopped
	default:
		return false
	}
}
