package agent

import "sort"

// pendingToolCall accumulates the fragments of one tool invocation
// during the streaming phase of a model turn. Name and arguments grow by
// string concatenation in fragment arrival order.
type pendingToolCall struct {
	ID   string
	Name string
	Args string
}

// toolCallAssembly is a sparse map from position index to accumulator.
// It deliberately does not assume dense indices or in-order first
// appearance across indices.
type toolCallAssembly struct {
	calls map[int]*pendingToolCall
}

func newToolCallAssembly() *toolCallAssembly {
	return &toolCallAssembly{calls: make(map[int]*pendingToolCall)}
}

func (a *toolCallAssembly) apply(d ToolCallDelta) {
	call, ok := a.calls[d.Index]
	if !ok {
		call = &pendingToolCall{}
		a.calls[d.Index] = call
	}
	if d.ID != "" {
		call.ID = d.ID
	}
	call.Name += d.Name
	call.Args += d.Args
}

// ordered returns the assembled calls in ascending index order.
func (a *toolCallAssembly) ordered() []pendingToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]pendingToolCall, 0, len(indices))
	for _, idx := range indices {
		out = append(out, *a.calls[idx])
	}
	return out
}
