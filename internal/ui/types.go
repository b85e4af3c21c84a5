package ui

import (
	"atelier/internal/models"
	"atelier/internal/stream"
	"atelier/internal/wire"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const MaxChatWidth = 100

var ModalWidth = 60

// DefaultDraft seeds a fresh session with a minimal working component.
var DefaultDraft = models.ComponentDraft{
	Prompt:       "Summarize the key points of the conversation in two or three sentences.",
	OutputSchema: `{"type":"object","properties":{"summary":{"type":"string"}},"required":["summary"]}`,
	UICode:       `<div class="card"><p>{{summary}}</p></div>`,
}

// RunEventMsg carries one decoded run event from the background stream
// reader into the update loop.
type RunEventMsg struct {
	Event wire.Event
}

// RunDoneMsg marks the end of a run stream. Err is the transport-level
// failure, if any; agent-level failures arrive as error events.
type RunDoneMsg struct {
	Err error
}

type ConversationsMsg struct {
	Items []models.ConversationListItem
	Err   error
}

type PublishedMsg struct {
	Err error
}

// ComponentLoadedMsg carries a previously published component fetched at
// startup.
type ComponentLoadedMsg struct {
	Title string
	State models.ComponentDraft
	Err   error
}

type Model struct {
	Viewport  viewport.Model
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *glamour.TermRenderer
	Client    *Client
	Program   *tea.Program

	Store    *stream.RoundStore
	Consumer *stream.Consumer
	Draft    models.ComponentDraft

	ComponentID    string
	ComponentTitle string
	ResumeExisting bool
	EditModes      models.EditModes

	Conversation  models.ConversationListItem
	Conversations []models.ConversationListItem

	PickerOpen        bool
	PickerSelectedIdx int
	PickerErr         error
	ShortcutsOpen     bool

	Loading      bool
	Err          error
	StatusNote   string
	WindowWidth  int
	WindowHeight int
}
