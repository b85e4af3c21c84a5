package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"atelier/internal/models"
	"atelier/internal/wire"
)

func newRound(t *testing.T) (*RoundStore, *Consumer) {
	t.Helper()
	store := NewRoundStore()
	store.Begin("make it better", models.EditModes{Prompt: true})
	consumer := NewConsumer(store, models.ComponentDraft{Prompt: "initial"})
	return store, consumer
}

func apply(t *testing.T, c *Consumer, events ...wire.Event) {
	t.Helper()
	for _, evt := range events {
		if err := c.Apply(evt); err != nil {
			t.Fatalf("Apply(%s): %v", evt.Type, err)
		}
	}
}

func TestConsumerFoldsChunksInOrder(t *testing.T) {
	store, consumer := newRound(t)

	apply(t, consumer,
		wire.Event{Type: wire.EventMessageStart, MessageStart: &wire.MessageStartPayload{MessageID: "m1"}},
		wire.Event{Type: wire.EventMessageChunk, MessageChunk: &wire.MessageChunkPayload{MessageID: "m1", Delta: "Hel"}},
		wire.Event{Type: wire.EventMessageChunk, MessageChunk: &wire.MessageChunkPayload{MessageID: "m1", Delta: "lo"}},
	)

	round := store.Rounds()[0]
	if len(round.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(round.Messages))
	}
	if round.Messages[0].Content != "Hello" {
		t.Errorf("content = %q, want Hello", round.Messages[0].Content)
	}

	apply(t, consumer,
		wire.Event{Type: wire.EventMessageComplete, MessageComplete: &wire.MessageCompletePayload{MessageID: "m1", Content: "Hello!"}},
	)
	if got := store.Rounds()[0].Messages[0].Content; got != "Hello!" {
		t.Errorf("content after complete = %q, want authoritative Hello!", got)
	}
}

func TestConsumerChunkForUnknownMessage(t *testing.T) {
	_, consumer := newRound(t)

	err := consumer.Apply(wire.Event{Type: wire.EventMessageChunk, MessageChunk: &wire.MessageChunkPayload{MessageID: "ghost", Delta: "x"}})
	if err == nil {
		t.Fatal("expected error for chunk without message_start")
	}
}

func TestConsumerAppendsToolEvents(t *testing.T) {
	store, consumer := newRound(t)

	apply(t, consumer,
		wire.Event{Type: wire.EventToolCall, ToolCall: &wire.ToolCallPayload{ID: "c1", ToolName: "edit_prompt", Args: json.RawMessage(`{"newPrompt":"x"}`)}},
		wire.Event{Type: wire.EventToolResult, ToolResult: &wire.ToolResultPayload{ID: "c1", ToolName: "edit_prompt", Result: "ok", Success: true}},
	)

	msgs := store.Rounds()[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Kind != models.KindToolCall || msgs[1].Kind != models.KindToolResult {
		t.Errorf("kinds = %s, %s", msgs[0].Kind, msgs[1].Kind)
	}
	if msgs[0].Metadata["toolName"] != "edit_prompt" || msgs[0].Metadata["toolCallId"] != "c1" {
		t.Errorf("tool_call metadata = %v", msgs[0].Metadata)
	}
	if msgs[1].Metadata["success"] != "true" {
		t.Errorf("tool_result metadata = %v", msgs[1].Metadata)
	}
}

func TestConsumerAgentCompleteUpdatesDraft(t *testing.T) {
	store, consumer := newRound(t)

	updated := models.ComponentDraft{Prompt: "better", OutputSchema: "{}", UICode: "<div/>"}
	apply(t, consumer,
		wire.Event{Type: wire.EventAgentComplete, AgentComplete: &wire.AgentCompletePayload{Success: true, UpdatedState: updated}},
	)

	if !consumer.Done() || !consumer.Succeeded() {
		t.Errorf("Done=%v Succeeded=%v, want true/true", consumer.Done(), consumer.Succeeded())
	}
	if consumer.Draft() != updated {
		t.Errorf("Draft() = %+v, want %+v", consumer.Draft(), updated)
	}
	// agent_complete carries no message; the log is untouched.
	if n := len(store.Rounds()[0].Messages); n != 0 {
		t.Errorf("messages = %d, want 0", n)
	}

	err := consumer.Apply(wire.Event{Type: wire.EventMessageStart, MessageStart: &wire.MessageStartPayload{MessageID: "late"}})
	if err == nil {
		t.Fatal("expected error for event after terminal event")
	}
}

func TestConsumerErrorEvent(t *testing.T) {
	store, consumer := newRound(t)

	apply(t, consumer,
		wire.Event{Type: wire.EventError, Error: &wire.ErrorPayload{Message: "model unavailable"}},
	)

	if !consumer.Done() || consumer.Succeeded() {
		t.Errorf("Done=%v Succeeded=%v, want true/false", consumer.Done(), consumer.Succeeded())
	}
	if consumer.Draft().Prompt != "initial" {
		t.Errorf("draft changed on error: %+v", consumer.Draft())
	}
	msgs := store.Rounds()[0].Messages
	if len(msgs) != 1 || msgs[0].Kind != models.KindError {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Content != "model unavailable" {
		t.Errorf("error content = %q", msgs[0].Content)
	}
}

func TestConsumerRequiresActiveRound(t *testing.T) {
	store := NewRoundStore()
	consumer := NewConsumer(store, models.ComponentDraft{})

	err := consumer.Apply(wire.Event{Type: wire.EventMessageStart, MessageStart: &wire.MessageStartPayload{MessageID: "m"}})
	if err == nil {
		t.Fatal("expected error without an active round")
	}
}

func TestRoundStoreAppendOnly(t *testing.T) {
	store := NewRoundStore()
	first := store.Begin("one", models.EditModes{})
	second := store.Begin("two", models.EditModes{Prompt: true})

	rounds := store.Rounds()
	if len(rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(rounds))
	}
	if rounds[0].ID != first || rounds[1].ID != second {
		t.Error("rounds reordered")
	}
	if rounds[0].UserPrompt != "one" || rounds[1].UserPrompt != "two" {
		t.Errorf("prompts = %q, %q", rounds[0].UserPrompt, rounds[1].UserPrompt)
	}
	if !rounds[1].EditModes.Prompt {
		t.Error("edit modes not captured on round")
	}
}

func TestEventReaderParsesFrames(t *testing.T) {
	frames := "event: message_start\ndata: {\"messageId\":\"m1\"}\n\n" +
		"event: message_chunk\ndata: {\"messageId\":\"m1\",\"delta\":\"hi\"}\n\n" +
		"event: agent_complete\ndata: {\"success\":true,\"updatedState\":{\"prompt\":\"p\",\"outputSchema\":\"\",\"uiCode\":\"\"}}\n\n"

	resp := &http.Response{Body: io.NopCloser(strings.NewReader(frames))}
	reader := NewEventReader(resp)
	defer reader.Close()

	var got []wire.Event
	for reader.Next() {
		got = append(got, reader.Event())
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}
	if got[0].Type != wire.EventMessageStart || got[0].MessageStart.MessageID != "m1" {
		t.Errorf("event 0 = %+v", got[0])
	}
	if got[1].Type != wire.EventMessageChunk || got[1].MessageChunk.Delta != "hi" {
		t.Errorf("event 1 = %+v", got[1])
	}
	if got[2].Type != wire.EventAgentComplete || !got[2].AgentComplete.Success {
		t.Errorf("event 2 = %+v", got[2])
	}
	if got[2].AgentComplete.UpdatedState.Prompt != "p" {
		t.Errorf("updated state = %+v", got[2].AgentComplete.UpdatedState)
	}
}
