package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"atelier/internal/models"
)

// EventType names one frame in the run's event stream.
type EventType string

const (
	EventMessageStart    EventType = "message_start"
	EventMessageChunk    EventType = "message_chunk"
	EventMessageComplete EventType = "message_complete"
	EventToolCall        EventType = "tool_call"
	EventToolResult      EventType = "tool_result"
	EventAgentComplete   EventType = "agent_complete"
	EventError           EventType = "error"
)

// Event is one typed frame. Exactly one of the payload pointers is set,
// matching Type. Events are emitted strictly in causal order and exactly
// one agent_complete or error terminates a run.
type Event struct {
	Type            EventType
	MessageStart    *MessageStartPayload
	MessageChunk    *MessageChunkPayload
	MessageComplete *MessageCompletePayload
	ToolCall        *ToolCallPayload
	ToolResult      *ToolResultPayload
	AgentComplete   *AgentCompletePayload
	Error           *ErrorPayload
}

type MessageStartPayload struct {
	MessageID string `json:"messageId"`
}

type MessageChunkPayload struct {
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
}

type MessageCompletePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type ToolCallPayload struct {
	ID       string          `json:"id"`
	ToolName string          `json:"toolName"`
	Args     json.RawMessage `json:"args"`
}

type ToolResultPayload struct {
	ID       string `json:"id"`
	ToolName string `json:"toolName"`
	Result   string `json:"result"`
	Success  bool   `json:"success"`
}

type AgentCompletePayload struct {
	Success      bool                  `json:"success"`
	UpdatedState models.ComponentDraft `json:"updatedState"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// EmitFunc receives driver events in order. Implementations must not
// reorder or drop events.
type EmitFunc func(Event)

// Payload returns the JSON payload for the event's type.
func (e Event) Payload() (interface{}, error) {
	switch e.Type {
	case EventMessageStart:
		return e.MessageStart, nil
	case EventMessageChunk:
		return e.MessageChunk, nil
	case EventMessageComplete:
		return e.MessageComplete, nil
	case EventToolCall:
		return e.ToolCall, nil
	case EventToolResult:
		return e.ToolResult, nil
	case EventAgentComplete:
		return e.AgentComplete, nil
	case EventError:
		return e.Error, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

// Terminal reports whether no further events may follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventAgentComplete || e.Type == EventError
}

// Decode parses a frame back into an Event from its name and JSON data.
func Decode(name string, data []byte) (Event, error) {
	evt := Event{Type: EventType(name)}
	var dst interface{}
	switch evt.Type {
	case EventMessageStart:
		evt.MessageStart = &MessageStartPayload{}
		dst = evt.MessageStart
	case EventMessageChunk:
		evt.MessageChunk = &MessageChunkPayload{}
		dst = evt.MessageChunk
	case EventMessageComplete:
		evt.MessageComplete = &MessageCompletePayload{}
		dst = evt.MessageComplete
	case EventToolCall:
		evt.ToolCall = &ToolCallPayload{}
		dst = evt.ToolCall
	case EventToolResult:
		evt.ToolResult = &ToolResultPayload{}
		dst = evt.ToolResult
	case EventAgentComplete:
		evt.AgentComplete = &AgentCompletePayload{}
		dst = evt.AgentComplete
	case EventError:
		evt.Error = &ErrorPayload{}
		dst = evt.Error
	default:
		return Event{}, fmt.Errorf("unknown event type %q", name)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return evt, nil
}

// SSEWriter frames events as text/event-stream, flushing per event so
// partial text reaches the client before the turn completes.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

func (s *SSEWriter) Write(evt Event) error {
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", evt.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
