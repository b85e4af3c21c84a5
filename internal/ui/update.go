package ui

import (
	"context"
	"strings"

	"atelier/internal/models"
	"atelier/internal/stream"
	"atelier/internal/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Loading {
			m.UpdateViewport()
		}
		return m, spCmd

	case tea.KeyMsg:
		if m.PickerOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "ctrl+o":
				m.PickerOpen = false
				m.PickerErr = nil
				return m, nil
			case "up", "k":
				if len(m.Conversations) == 0 {
					return m, nil
				}
				m.PickerSelectedIdx--
				if m.PickerSelectedIdx < 0 {
					m.PickerSelectedIdx = len(m.Conversations) - 1
				}
				return m, nil
			case "down", "j":
				if len(m.Conversations) == 0 {
					return m, nil
				}
				m.PickerSelectedIdx++
				if m.PickerSelectedIdx >= len(m.Conversations) {
					m.PickerSelectedIdx = 0
				}
				return m, nil
			case "enter":
				if len(m.Conversations) == 0 {
					return m, nil
				}
				m.Conversation = m.Conversations[m.PickerSelectedIdx]
				m.PickerOpen = false
				m.PickerErr = nil
				m.StatusNote = ""
				return m, nil
			}
			return m, nil
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			if m.Loading {
				return m, nil
			}
			m.ResetSession()
			return m, nil

		case tea.KeyCtrlP:
			m.EditModes.Prompt = !m.EditModes.Prompt
			return m, nil

		case tea.KeyCtrlD:
			m.EditModes.Data = !m.EditModes.Data
			return m, nil

		case tea.KeyCtrlU:
			m.EditModes.UICode = !m.EditModes.UICode
			return m, nil

		case tea.KeyCtrlO:
			m.PickerOpen = true
			m.ShortcutsOpen = false
			return m, m.FetchConversations()

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.PickerOpen = false
			return m, nil

		case tea.KeyCtrlY:
			if m.Loading {
				return m, nil
			}
			m.StatusNote = "publishing..."
			return m, m.PublishDraft()

		case tea.KeyEnter:
			if m.Loading {
				return m, nil
			}
			input := strings.TrimSpace(m.TextInput.Value())
			if input == "" {
				return m, nil
			}
			if m.Conversation.ID == "" {
				m.StatusNote = "pick a conversation first (ctrl+o)"
				return m, nil
			}

			m.Store.Begin(input, m.EditModes)
			m.Consumer = stream.NewConsumer(m.Store, m.Draft)
			m.TextInput.Reset()
			m.updateInputLayout()
			m.Loading = true
			m.Err = nil
			m.StatusNote = ""
			m.UpdateViewport()

			return m, tea.Batch(m.StartRun(input), m.Spinner.Tick)
		}

	case RunEventMsg:
		if m.Consumer != nil {
			if err := m.Consumer.Apply(msg.Event); err != nil {
				m.Err = err
			}
		}
		m.UpdateViewport()
		return m, nil

	case RunDoneMsg:
		m.Loading = false
		if m.Consumer != nil {
			m.Draft = m.Consumer.Draft()
			if m.Consumer.Done() && !m.Consumer.Succeeded() {
				m.StatusNote = "run did not complete cleanly"
			}
		}
		if msg.Err != nil {
			m.Err = msg.Err
		}
		m.UpdateViewport()
		return m, nil

	case ConversationsMsg:
		m.PickerErr = msg.Err
		m.Conversations = msg.Items
		m.PickerSelectedIdx = 0
		if m.Conversation.ID == "" && len(msg.Items) > 0 {
			m.Conversation = msg.Items[0]
		}
		return m, nil

	case ComponentLoadedMsg:
		if msg.Err != nil {
			// Nothing published under this id yet; keep the seed draft.
			return m, nil
		}
		m.ComponentTitle = msg.Title
		m.Draft = msg.State
		m.UpdateViewport()
		return m, nil

	case PublishedMsg:
		if msg.Err != nil {
			m.StatusNote = ""
			m.Err = msg.Err
		} else {
			m.StatusNote = "published ✓"
		}
		m.UpdateViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		chatWidth := msg.Width - 2
		if chatWidth > MaxChatWidth {
			chatWidth = MaxChatWidth
		}
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, tea.Batch(tiCmd, vpCmd)
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter out terminal background color queries that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// StartRun posts the request and pumps decoded events into the program
// as they arrive. The command returns only when the stream ends.
func (m *Model) StartRun(input string) tea.Cmd {
	req := models.RunRequest{
		ComponentID:       m.ComponentID,
		ComponentTitle:    m.ComponentTitle,
		ConversationID:    m.Conversation.ID,
		ConversationTitle: m.Conversation.Title,
		UserPrompt:        input,
		CurrentState:      m.Draft,
		EditModes:         m.EditModes,
	}

	return func() tea.Msg {
		reader, err := m.Client.Run(context.Background(), req)
		if err != nil {
			return RunDoneMsg{Err: err}
		}
		defer reader.Close()

		for reader.Next() {
			if m.Program != nil {
				m.Program.Send(RunEventMsg{Event: reader.Event()})
			}
		}
		return RunDoneMsg{Err: reader.Err()}
	}
}

func (m *Model) FetchConversations() tea.Cmd {
	client := m.Client
	return func() tea.Msg {
		items, err := client.ListConversations(context.Background())
		return ConversationsMsg{Items: items, Err: err}
	}
}

func (m *Model) FetchComponent() tea.Cmd {
	client := m.Client
	id := m.ComponentID
	return func() tea.Msg {
		title, state, err := client.GetComponent(context.Background(), id)
		return ComponentLoadedMsg{Title: title, State: state, Err: err}
	}
}

func (m *Model) PublishDraft() tea.Cmd {
	client := m.Client
	id := m.ComponentID
	title := m.ComponentTitle
	state := m.Draft
	return func() tea.Msg {
		return PublishedMsg{Err: client.Publish(context.Background(), id, title, state)}
	}
}

func (m *Model) ResetSession() {
	m.Store = stream.NewRoundStore()
	m.Consumer = nil
	m.Draft = DefaultDraft
	m.Err = nil
	m.StatusNote = ""
	m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.updateInputLayout()
}
