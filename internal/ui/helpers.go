package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"atelier/internal/executor"
	"atelier/internal/models"
	"atelier/internal/styles"

	"github.com/mattn/go-runewidth"
)

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAgentMessage(content string) string {
	label := styles.AgentLabelStyle.Render("ATELIER")
	msg := styles.AgentMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatToolLine renders one tool_call or tool_result log entry as a
// single dim action line.
func FormatToolLine(msg models.AgentMessage) string {
	name := msg.Metadata["toolName"]
	icon := styles.ToolIconStyle.Render("→")

	if msg.Kind == models.KindToolCall {
		return styles.ToolActionStyle.Render(fmt.Sprintf("%s %s", icon, styles.ToolNameStyle.Render(name+"...")))
	}

	success, _ := strconv.ParseBool(msg.Metadata["success"])
	summary := executor.Summary(name, nil, executor.Result{Success: success, Content: msg.Content})
	return styles.ToolActionStyle.Render(fmt.Sprintf("%s %s", icon, styles.ToolNameStyle.Render(summary)))
}
