package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ComponentDraft is the in-memory prompt/schema/UI-code triple being
// refined during one agent run. It is owned by the run and only persisted
// when the user publishes it.
type ComponentDraft struct {
	Prompt       string `json:"prompt"`
	OutputSchema string `json:"outputSchema"`
	UICode       string `json:"uiCode"`
}

// EditModes are the per-field permissions for a single run. The schema
// flag is called "data" on the wire.
type EditModes struct {
	Prompt bool `json:"prompt"`
	Data   bool `json:"data"`
	UICode bool `json:"uiCode"`
}

// MessageKind classifies entries in a round's message log.
type MessageKind string

const (
	KindAssistantText MessageKind = "assistant_text"
	KindToolCall      MessageKind = "tool_call"
	KindToolResult    MessageKind = "tool_result"
	KindError         MessageKind = "error"
)

// AgentMessage is one immutable entry in a round. IDs are unique within a
// round only.
type AgentMessage struct {
	ID        string            `json:"id"`
	Kind      MessageKind       `json:"kind"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConversationRound holds everything produced in response to one user
// prompt. Messages are append-only for the lifetime of the round.
type ConversationRound struct {
	ID         string         `json:"id"`
	UserPrompt string         `json:"userPrompt"`
	EditModes  EditModes      `json:"editModes"`
	Messages   []AgentMessage `json:"messages"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ConversationMeta describes the grounding conversation so the model can
// decide how much transcript detail to request.
type ConversationMeta struct {
	DurationSeconds int `json:"durationSeconds"`
	SpeakerCount    int `json:"speakerCount"`
	WordCount       int `json:"wordCount"`
	CharCount       int `json:"charCount"`
}

// RunRequest is the body of the agent run endpoint.
type RunRequest struct {
	ComponentID       string         `json:"componentId"`
	ComponentTitle    string         `json:"componentTitle"`
	ConversationID    string         `json:"conversationId"`
	ConversationTitle string         `json:"conversationTitle"`
	UserPrompt        string         `json:"userPrompt"`
	CurrentState      ComponentDraft `json:"currentState"`
	EditModes         EditModes      `json:"editModes"`
}

// ConversationListItem is a row in the conversation picker.
type ConversationListItem struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Meta      ConversationMeta `json:"meta"`
	CreatedAt time.Time        `json:"createdAt"`
}
