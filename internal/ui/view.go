package ui

import (
	"fmt"
	"strings"

	"atelier/internal/models"
	"atelier/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) RenderConversationPicker() string {
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Conversations (%d)", len(m.Conversations)))

	var body string
	if m.PickerErr != nil {
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.PickerErr)))
	} else if len(m.Conversations) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No conversations yet"))
	} else {
		items := make([]string, 0, len(m.Conversations))
		for i, conv := range m.Conversations {
			isSelected := i == m.PickerSelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			meta := fmt.Sprintf("%dw, %s", conv.Meta.WordCount, RelativeTime(conv.CreatedAt))
			title := conv.Title
			if title == "" {
				title = "(untitled)"
			}
			availableWidth := styles.ContentWidth - 2 - len(cursor) - 1 - len(meta)
			title = TruncateRunes(title, availableWidth)

			itemContent := fmt.Sprintf("%s%s %s", cursor, title, lipgloss.NewStyle().Foreground(styles.HintColor).Render(meta))
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: select • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit Application"},
		{"Ctrl+N", "New Session"},
		{"Ctrl+O", "Pick Conversation"},
		{"Ctrl+P", "Toggle Prompt Edits"},
		{"Ctrl+D", "Toggle Schema Edits"},
		{"Ctrl+U", "Toggle UI Code Edits"},
		{"Ctrl+Y", "Publish Component"},
		{"Ctrl+J", "Insert Newline"},
		{"Ctrl+S", "View Shortcuts (this menu)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	modePill := func(label string, on bool) string {
		if on {
			return styles.ModeOnStyle.Render(label)
		}
		return styles.ModeOffStyle.Render(label)
	}
	modes := lipgloss.JoinHorizontal(lipgloss.Center,
		modePill("PROMPT", m.EditModes.Prompt),
		modePill("DATA", m.EditModes.Data),
		modePill("UI", m.EditModes.UICode),
	)

	convTitle := m.Conversation.Title
	if convTitle == "" {
		convTitle = "no conversation"
	}
	conv := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(TruncateRunes(convTitle, 30))

	component := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(TruncateRunes(m.ComponentTitle, 25))

	status := ""
	if m.Err != nil {
		status = styles.ErrorStyle.Render(TruncateRunes(m.Err.Error(), 40))
	} else if m.StatusNote != "" {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("#A5D6A7")).Render(m.StatusNote)
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, modes, "  ", component, "  ", conv)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, status, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭──────────────────────────────────────────────╮
 │                                              │
 │      A  T  E  L  I  E  R                     │
 │                                              │
 │      component workshop for conversations    │
 │                                              │
 ╰──────────────────────────────────────────────╯
`
	subtitle := "Pick a conversation (^O), then describe the component you want."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Italic(true).Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// UpdateViewport rebuilds the scrollback from the round log. Rounds are
// rendered in order and the viewport stays pinned to the bottom.
func (m *Model) UpdateViewport() {
	rounds := m.Store.Rounds()
	if len(rounds) == 0 && !m.Loading {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	blocks := make([]string, 0, len(rounds))
	for i, round := range rounds {
		blocks = append(blocks, m.renderRound(round, i == 0))
	}
	content := strings.Join(blocks, "\n\n")

	if m.Loading {
		loading := fmt.Sprintf("%s Working...", m.Spinner.View())
		content = content + "\n\n" + loading
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) renderRound(round models.ConversationRound, isFirst bool) string {
	parts := []string{FormatUserMessage(round.UserPrompt, m.Viewport.Width, isFirst)}

	for _, msg := range round.Messages {
		switch msg.Kind {
		case models.KindAssistantText:
			displayContent := msg.Content
			if m.Renderer != nil {
				if rendered, err := m.Renderer.Render(msg.Content); err == nil {
					displayContent = strings.TrimSpace(rendered)
				}
			}
			parts = append(parts, FormatAgentMessage(displayContent))
		case models.KindToolCall:
			parts = append(parts, FormatToolLine(msg))
		case models.KindToolResult:
			parts = append(parts, FormatToolLine(msg))
		case models.KindError:
			parts = append(parts, styles.ErrorStyle.Render(fmt.Sprintf("Error: %s", msg.Content)))
		}
	}
	return strings.Join(parts, "\n")
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("ATELIER"),
		"",
		m.Viewport.View(),
		"",
		inputBox,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	bottomBar := m.RenderBottomBar()

	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, bottomBar)

	if m.PickerOpen {
		modal := styles.ModalStyle.Width(ModalWidth).Render(m.RenderConversationPicker())
		return lipgloss.Place(m.WindowWidth, m.WindowHeight, lipgloss.Center, lipgloss.Center, modal)
	}

	if m.ShortcutsOpen {
		modal := styles.ModalStyle.Width(ModalWidth).Render(m.RenderShortcutsModal())
		return lipgloss.Place(m.WindowWidth, m.WindowHeight, lipgloss.Center, lipgloss.Center, modal)
	}

	return content
}
