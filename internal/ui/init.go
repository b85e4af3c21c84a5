package ui

import (
	"os"

	"atelier/internal/models"
	"atelier/internal/stream"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

func InitialModel(serverURL string) Model {
	ti := textarea.New()
	ti.Placeholder = "Describe the change..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	vp := viewport.New(60, 15)

	componentID := os.Getenv("ATELIER_COMPONENT_ID")
	resume := componentID != ""
	if componentID == "" {
		componentID = uuid.NewString()
	}

	return Model{
		TextInput:      ti,
		Viewport:       vp,
		Spinner:        sp,
		Client:         NewClient(serverURL),
		Store:          stream.NewRoundStore(),
		Draft:          DefaultDraft,
		ComponentID:    componentID,
		ComponentTitle: "Untitled component",
		ResumeExisting: resume,
		EditModes:      models.EditModes{Prompt: true, Data: true, UICode: true},
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
		m.FetchConversations(),
	}
	if m.ResumeExisting {
		cmds = append(cmds, m.FetchComponent())
	}
	return tea.Batch(cmds...)
}

func NewProgram(serverURL string) *tea.Program {
	m := InitialModel(serverURL)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	return p
}
