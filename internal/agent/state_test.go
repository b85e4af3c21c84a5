package agent

import "testing"

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from State
		to   State
		want bool
	}{
		{StateAwaitingModel, StateStreaming, true},
		{StateAwaitingModel, StateMaxIterations, true},
		{StateAwaitingModel, StateFatal, true},
		{StateAwaitingModel, StateDone, false},
		{StateAwaitingModel, StateExecutingTools, false},

		{StateStreaming, StateExecutingTools, true},
		{StateStreaming, StateDone, true},
		{StateStreaming, StateFatal, true},
		{StateStreaming, StateAwaitingModel, false},
		{StateStreaming, StateMaxIterations, false},

		{StateExecutingTools, StateAwaitingModel, true},
		{StateExecutingTools, StateFatal, true},
		{StateExecutingTools, StateDone, false},
		{StateExecutingTools, StateStreaming, false},

		{StateDone, StateFatal, false},
		{StateDone, StateAwaitingModel, false},
		{StateMaxIterations, StateFatal, false},
		{StateFatal, StateAwaitingModel, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []State{StateDone, StateMaxIterations, StateFatal}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []State{StateAwaitingModel, StateStreaming, StateExecutingTools}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateAwaitingModel:  "awaiting_model",
		StateStreaming:      "streaming",
		StateExecutingTools: "executing_tools",
		StateDone:           "done",
		StateMaxIterations:  "max_iterations",
		StateFatal:          "fatal_error",
		State(99):           "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
