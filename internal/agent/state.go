package agent

// State tracks where the run loop is. The loop is single-threaded per
// run; the state exists to make the control flow testable, not to
// synchronize anything.
type State int

const (
	StateAwaitingModel State = iota
	StateStreaming
	StateExecutingTools
	StateDone
	StateMaxIterations
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateStreaming:
		return "streaming"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateMaxIterations:
		return "max_iterations"
	case StateFatal:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run is over in this state.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateMaxIterations, StateFatal:
		return true
	default:
		return false
	}
}

// CanTransition encodes the legal moves of the run state machine:
// AWAITING_MODEL -> STREAMING -> (EXECUTING_TOOLS -> AWAITING_MODEL)* ->
// DONE | MAX_ITER, with FATAL reachable from any non-terminal state.
func (s State) CanTransition(to State) bool {
	if s.Terminal() {
		return false
	}
	if to == StateFatal {
		return true
	}
	switch s {
	case StateAwaitingModel:
		return to == StateStreaming || to == StateMaxIterations
	case StateStreaming:
		return to == StateExecutingTools || to == StateDone
	case StateExecutingTools:
		return to == StateAwaitingModel
	default:
		return false
	}
}
